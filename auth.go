package main

import (
	"net/http"

	"bitbucket.org/clearexpress/brokerage_backend/models"
	"github.com/gin-gonic/gin"
)

type signinRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func signinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		loginInfo, err := models.Signin(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": loginInfo.Token,
			"name":  loginInfo.Name,
			"role":  loginInfo.Role,
		})
	}
}

func signoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Signout(c.Request.Context())
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// signoutAllHandler revokes every live session of the caller, for password
// changes and lost devices.
func signoutAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.SignoutAll(c.Request.Context())
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
