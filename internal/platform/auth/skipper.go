package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists routes reachable without a system token: probes and the
// token issuing endpoints test tooling calls before it holds a token.
var publicPaths = map[string]bool{
	"/running":                         true,
	"/version":                         true,
	"/health":                          true,
	"/health/db":                       true,
	"/dhos/v1/clinician/jwt":           true,
	"/dhos/v1/patient/:patient_id/jwt": true,
	"/dhos/v1/system/:system_id/jwt":   true,
}

// AuthSkipper reports whether the matched route skips authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether a route pattern is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
