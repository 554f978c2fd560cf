package middleware

// identity.go defines helper functions for identifying the party behind a
// request. Authenticated users are identified by the JWT subject stored in
// the Echo context by JWTAuth; anonymous claimants are identified by the
// X-Hold-Token header, which the client keeps for the life of a session so
// slot holds survive page reloads.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// HolderID returns the lock-holder identity for the request: "user:<id>"
// for an authenticated user, "guest:<token>" when an X-Hold-Token header
// is present, and "" when neither applies. The sub claim arrives as a
// float64 from MapClaims, so numeric forms are normalized to a plain
// decimal string.
func HolderID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case float64:
		return "user:" + strconv.FormatUint(uint64(v), 10)
	case uint64:
		return "user:" + strconv.FormatUint(v, 10)
	case int64:
		return "user:" + strconv.FormatUint(uint64(v), 10)
	case string:
		return "user:" + v
	}
	if tok := c.Request().Header.Get("X-Hold-Token"); tok != "" {
		return "guest:" + tok
	}
	return ""
}
