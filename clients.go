package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/clearexpress/brokerage_backend/models"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"github.com/gin-gonic/gin"
)

// listClientsHandler returns the saved-clients picker for one client type.
// Lookup failures degrade to an empty list, the picker stays usable.
func listClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}

		clientType := models.ClientType(c.DefaultQuery("type", string(models.ClientTypeConsignee)))
		switch clientType {
		case models.ClientTypeConsignee:
			consignees, err := models.GetSavedConsignees(ctx)
			if err != nil || consignees == nil {
				c.JSON(http.StatusOK, gin.H{"success": true, "data": []*models.ConsigneeSummary{}})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": consignees})
		case models.ClientTypeExporter:
			exporters, err := models.GetSavedExporters(ctx)
			if err != nil || exporters == nil {
				c.JSON(http.StatusOK, gin.H{"success": true, "data": []*models.ExporterSummary{}})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": exporters})
		default:
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []struct{}{}})
		}
	}
}

func getClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusOK, nil)
			return
		}

		clientType := models.ClientType(c.DefaultQuery("type", string(models.ClientTypeConsignee)))
		switch clientType {
		case models.ClientTypeConsignee:
			consignee, err := models.GetConsignee(ctx, id)
			if err != nil {
				c.JSON(http.StatusOK, nil)
				return
			}
			c.JSON(http.StatusOK, consignee)
		case models.ClientTypeExporter:
			exporter, err := models.GetExporter(ctx, id)
			if err != nil {
				c.JSON(http.StatusOK, nil)
				return
			}
			c.JSON(http.StatusOK, exporter)
		default:
			c.JSON(http.StatusOK, nil)
		}
	}
}

func deleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "invalid document id"})
			return
		}
		if err := models.DeleteConsigneeDocument(ctx, id); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type createClientRequest struct {
	Type      models.ClientType    `json:"type" binding:"required"`
	Consignee *models.NewConsignee `json:"consignee"`
	Exporter  *models.NewExporter  `json:"exporter"`
}

func createClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}

		var req createClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": utils.ProcessValidationErrors(err)})
			return
		}

		switch req.Type {
		case models.ClientTypeConsignee:
			if req.Consignee == nil {
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "consignee payload is required"})
				return
			}
			consignee, err := models.CreateConsignee(ctx, req.Consignee)
			if err != nil {
				c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "client": consignee})
		case models.ClientTypeExporter:
			if req.Exporter == nil {
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "exporter payload is required"})
				return
			}
			exporter, err := models.CreateExporter(ctx, req.Exporter)
			if err != nil {
				c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "client": exporter})
		default:
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "unknown client type"})
		}
	}
}
