package handlers

import (
	"errors"
	"net/http"
	"server/assets"

	"github.com/gin-gonic/gin"
)

var Assets *assets.Service

// Init wires the shared asset service used by all handlers
func Init(service *assets.Service) {
	Assets = service
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DataResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if assets.IsValidationError(err) {
		status = http.StatusBadRequest
	} else if errors.Is(err, assets.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, Response{Error: err.Error()})
}
