package middleware

import (
	"net/http"

	"pressroom/internal/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as an ErrorBody and stops the chain. Internal
// errors are recorded on the context for the request logger and hidden
// from the client.
func AbortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		c.Error(err)
		msg = "internal error"
	}
	if kind == apperr.KindTransient {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(StatusFor(kind), ErrorBody{Error: kind.String(), Message: msg})
}
