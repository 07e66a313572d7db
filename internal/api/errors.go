package api

import (
	"net/http"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Error   string      `json:"error"`
}

func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	_ = c.Error(err)
	c.JSON(status, errorResponse{
		Success: false,
		Code:    apperr.CodeOf(err),
		Error:   apperr.Message(err, http.StatusText(status)),
	})
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}
