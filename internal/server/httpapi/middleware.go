package httpapi

import (
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const claimsKey ctxKey = "claims"

var errMissingToken = common.WithMessage(common.ErrorUnauthorized, "Missing access token")

// tokenFrom reads the session token from the cookie, falling back to a
// bearer Authorization header.
func (s *Server) tokenFrom(c *fiber.Ctx) string {
	if v := c.Cookies(s.cookie.Name); v != "" {
		return v
	}
	h := c.Get(common.AuthorizationHeaderName)
	if strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}

func (s *Server) authenticate(c *fiber.Ctx) (*auth.Claims, error) {
	token := s.tokenFrom(c)
	if token == "" {
		return nil, errMissingToken
	}
	return s.users.Authenticate(c.UserContext(), token)
}

// requireAuth rejects requests without a valid, unrevoked token and stores
// the claims for the handlers that follow.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	claims, err := s.authenticate(c)
	if err != nil {
		return err
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

func claimsOf(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsKey).(*auth.Claims)
	return claims
}
