package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/gin-gonic/gin"
)

func GetInventories(c *gin.Context) {
	records, err := models.GetInventories(c.Request.Context(), c.Query("store_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func GetPayables(c *gin.Context) {
	payables, err := models.GetPayables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payables)
}

func GetReceivables(c *gin.Context) {
	receivables, err := models.GetReceivables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receivables)
}
