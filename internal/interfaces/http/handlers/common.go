// Package handlers implements the JSON API. Successful responses are wrapped
// as {"contents": ...}; failures as {"error": message} with the status
// mapped from the error code.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/internal/interfaces/http/middleware"
	"github.com/turtacn/flame-data/pkg/errors"
)

// Envelope is the success body.
type Envelope struct {
	Contents interface{} `json:"contents"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respond(c *gin.Context, status int, contents interface{}) {
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, Envelope{Contents: contents})
}

// respondError writes err with its mapped status. Server-side failures are
// attached to the gin context so the access log carries the cause.
func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errors.PublicMessage(err)})
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, errors.Newf(errors.ErrCodeBadRequest, "Invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into dst.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return false
	}
	return true
}

// currentUser returns the session user. Routes behind RequireUser always
// have one.
func currentUser(c *gin.Context) *user.User {
	return middleware.CurrentUser(c)
}
