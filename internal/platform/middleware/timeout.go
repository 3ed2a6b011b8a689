package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cdss/refdata/internal/platform/fhir"
)

// RequestTimeout sets a deadline on each request context. A handler that is
// still running at the deadline gets a 504 with an OperationOutcome body.
// The first request after start-up may wait on a catalog load, so the
// timeout should exceed the loader's own timeout.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					if !c.Response().Committed {
						return c.JSON(http.StatusGatewayTimeout, fhir.TimeoutOutcome())
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}
