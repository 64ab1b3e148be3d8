// Package boundary binds guard to HTTP handlers.
//
// It provides three pieces:
//
//   - Boundary: middleware that recovers panics raised while a handler renders,
//     turns the panic value into a *guard.Error and hands it to a Fallback.
//   - Provider: scoped configuration that installs a default Fallback for a
//     subtree of routes. A Fallback given to a Boundary takes precedence.
//   - Handle: a gin handler adapter that runs the handler body through
//     guard.Run and writes the Result as JSON.
//
// Boundaries and providers work with both net/http and gin:
//
//	r := gin.New()
//	r.Use(boundary.GinProvider(boundary.JSONFallback))
//	r.Use(boundary.New().Gin())
//	r.GET("/user", boundary.Handle(func(c *gin.Context) (User, error) {
//	    return users.Find(c.Request.Context(), c.Query("id"))
//	}))
package boundary
