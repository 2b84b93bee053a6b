package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/genie/internal/apperr"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindDuplicateID:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidRequest:
		return http.StatusBadRequest
	case apperr.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(err), errorBody{Error: err.Error()})
}

func abortWithMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

func invalidBody(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}
