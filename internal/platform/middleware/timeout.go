package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// IssueTypeTimeout is the OperationOutcome code of a request that ran out
// of time.
const IssueTypeTimeout = "timeout"

// RequestTimeout puts a deadline on the request context. When it passes
// before the handler returns, the client gets 504 with an OperationOutcome.
// A zero timeout disables the middleware.
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
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, fhir.NewOperationOutcome(fhir.IssueSeverityError, IssueTypeTimeout,
					"Request processing exceeded the allowed time limit"))
			}
		}
	}
}
