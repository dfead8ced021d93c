package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"TCAVis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a panicking handler into a 500 in the usual response envelope. Renderers run
// in the request goroutine, so a bad dataset must not take the process down.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				l.Error("http handler panic",
					logger.String("request_id", requestID(c)),
					logger.String("route", c.Path()),
					logger.String("panic", fmt.Sprint(r)),
					logger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
					"data":    []map[string]string{{"code": "ERR_INTERNAL", "message": "Something went wrong"}},
				})
			}()
			return next(c)
		}
	}
}

// requestID reads the id set by echo's RequestID middleware, request or response side.
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
