package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication: health checks and FHIR discovery.
var publicPaths = map[string]bool{
	"/health":                       true,
	"/health/db":                    true,
	"/api_fhir_r4/metadata":         true,
	"/api_fhir_r4/CodeSystem":       true,
	"/api_fhir_r4/CodeSystem/:name": true,
}

// AuthSkipper returns true for requests whose route is public. Pass it as
// JWTConfig.Skipper.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath reports whether the route path is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
