package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
)

// respondError writes err as a JSON error with the status its code maps to.
// Server-side failures never leak their cause.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{
		"error": "Internal server error",
		"code":  apperrors.Code(err),
	}

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusServiceUnavailable:
		body["error"] = "Service temporarily unavailable"
	case status < http.StatusInternalServerError && errors.As(err, &appErr):
		body["error"] = appErr.Message
		if appErr.Details != "" {
			body["details"] = appErr.Details
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
