package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/models"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"github.com/gin-gonic/gin"
)

func shipmentIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func createShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}

		var input models.NewShipment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": utils.ProcessValidationErrors(err)})
			return
		}

		shipment, err := models.CreateShipment(ctx, &input)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"referenceNumber": shipment.ReferenceNumber,
			"shipment":        shipment,
		})
	}
}

// listShipmentsHandler degrades lookup failures to an empty list; the
// dashboard renders either way.
func listShipmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}

		summaries, err := models.GetShipments(ctx)
		if err != nil || summaries == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []*models.ShipmentSummary{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": summaries})
	}
}

// getShipmentHandler returns the detail view, or a JSON null body when the
// shipment does not exist or belongs to another user.
func getShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, user, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, ok := shipmentIdParam(c)
		if !ok {
			c.JSON(http.StatusOK, nil)
			return
		}

		var cached models.ShipmentView
		if found, err := utils.RetrieveShipmentViewCache(user.ID, id, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		shipment, err := models.GetShipment(ctx, id)
		if err != nil || shipment == nil {
			c.JSON(http.StatusOK, nil)
			return
		}

		view, err := models.ProjectShipment(shipment)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "getShipmentHandler", "projection failed", id, err)
			c.JSON(http.StatusOK, nil)
			return
		}
		if err := utils.StoreShipmentViewCache(user.ID, id, view); err != nil {
			config.LogError(config.GetLogger(), "server.go", "getShipmentHandler", "cache store failed", id, err)
		}
		c.JSON(http.StatusOK, view)
	}
}

type updateStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description"`
}

func updateShipmentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, ok := shipmentIdParam(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}

		var event *models.TimelineEvent
		if req.Description != "" {
			event = &models.TimelineEvent{Description: req.Description}
		}
		updated := models.UpdateShipmentStatus(ctx, id, req.Status, event)
		c.JSON(http.StatusOK, gin.H{"success": updated})
	}
}

func updateShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, ok := shipmentIdParam(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "invalid shipment id"})
			return
		}

		var patch models.ShipmentPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": utils.ProcessValidationErrors(err)})
			return
		}

		view, err := models.UpdateShipmentDetails(ctx, id, &patch)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
	}
}

type linkClientRequest struct {
	ClientId   int               `json:"client_id" binding:"required"`
	ClientType models.ClientType `json:"client_type" binding:"required"`
}

func linkClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, ok := shipmentIdParam(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "invalid shipment id"})
			return
		}

		var req linkClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": utils.ProcessValidationErrors(err)})
			return
		}

		shipment, err := models.LinkClientToShipment(ctx, id, req.ClientId, req.ClientType)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "shipment": shipment})
	}
}

type recordUploadRequest struct {
	DocumentType string `json:"document_type" binding:"required"`
	FileUrl      string `json:"file_url" binding:"required"`
}

// recordUploadHandler files an already-uploaded object against the shipment
// checklist. An upload whose type matches no checklist entry still succeeds;
// status comes back empty in that case.
func recordUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, ok := withSessionUser(c)
		if !ok {
			return
		}
		id, ok := shipmentIdParam(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "invalid shipment id"})
			return
		}

		var req recordUploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": utils.ProcessValidationErrors(err)})
			return
		}

		status, err := models.RecordShipmentUpload(ctx, id, req.DocumentType, req.FileUrl)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "fileUrl": req.FileUrl, "status": status})
	}
}
