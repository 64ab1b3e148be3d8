package boundary

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardkit/guard/pkg/guard"
)

// Handle adapts a gin handler body that returns a value into a guarded handler.
// The body runs through guard.Run with the request context and the Result is
// written with Respond.
func Handle[T any](fn func(c *gin.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := guard.Run(c.Request.Context(), func(context.Context) (T, error) {
			return fn(c)
		})
		Respond(c, res)
	}
}

// Respond writes res as JSON. Failures are attached to the gin context with
// c.Error and rendered with StatusOf their code.
func Respond[T any](c *gin.Context, res guard.Result[T]) {
	if res.Ok {
		c.JSON(http.StatusOK, res)
		return
	}
	_ = c.Error(res.Err)
	c.JSON(StatusOf(res.Err.Code()), res)
}
