package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const detailInternal = "internal server error"

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
	// Headers are set on the response when the case matches.
	Headers map[string]string
}

// RespondWithMappedError resolves err against known cases. Unmatched errors are
// attached to the context for the access log and answered with a generic 500.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			for key, value := range cs.Headers {
				c.Header(key, value)
			}
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, detailInternal))
}
