package httpapi

import (
	"github.com/labstack/echo/v4"

	"horse.fit/unify/internal/auth"
)

// requireAdmin guards mutating endpoints with the configured admin token.
// With no hash configured the guard is a pass-through; the constructor warns
// about that at startup.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AdminTokenHash == "" {
				return next(c)
			}

			token := auth.BearerToken(c.Request().Header.Get("Authorization"))
			if token == "" {
				return unauthorizedResponse(c)
			}
			if !auth.VerifyToken(token, s.opts.AdminTokenHash) {
				return unauthorizedResponse(c)
			}
			return next(c)
		}
	}
}
