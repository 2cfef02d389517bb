package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// respondError maps the model error taxonomy onto the wire:
// 422 malformed request, 404 unknown resource, 409 stock conflict,
// 500 anything the caller cannot repair by changing the request.
func respondError(c *gin.Context, err error) {
	var fieldErrors validator.ValidationErrors
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &fieldErrors):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "ValidationError",
			"message": "invalid request body",
			"fields":  utils.ProcessValidationErrors(fieldErrors),
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "ValidationError",
			"message": validationErr.Message,
		})
	case errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "NotFound",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "InsufficientStock",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrNoInventoryRecord):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "NoInventoryRecord",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrInconsistentState):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "InconsistentState",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "InternalError",
			"message": err.Error(),
		})
	}
}

// respondBindError handles gin binding failures, surfacing field-level tags
// when the body parsed but failed validation.
func respondBindError(c *gin.Context, err error) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "ValidationError",
			"message": "invalid request body",
			"fields":  utils.ProcessValidationErrors(fieldErrors),
		})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "ValidationError",
		"message": err.Error(),
	})
}
