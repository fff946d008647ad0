package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	localsKey    = "api_key"
	headerAPIKey = "X-API-Key"
	headerSig    = "X-Webhook-Signature"
)

// requireAuth resolves the caller's API key from the X-API-Key header or a
// Bearer token and applies its rate limit. With no master key configured
// the gateway runs open and every caller gets admin.
func (s *Server) requireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.masterKey == "" {
			c.Locals(localsKey, &APIKey{Name: "open", Permissions: []string{PermAdmin}})
			return c.Next()
		}

		raw := c.Get(headerAPIKey)
		if raw == "" {
			auth := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if raw == "" {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing API key")
		}

		if raw == s.masterKey {
			c.Locals(localsKey, &APIKey{Name: "master", Permissions: []string{PermAdmin}})
			return c.Next()
		}

		key, ok := s.keys.Lookup(raw)
		if !ok {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid API key")
		}
		if !s.keys.Allow(raw, key.RateLimit) {
			return fail(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		}

		c.Locals(localsKey, key)
		return c.Next()
	}
}

// requirePermission gates a route on one permission of the resolved key.
func (s *Server) requirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := callerKey(c)
		if key == nil || !key.HasPermission(perm) {
			return fail(c, fiber.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		}
		return c.Next()
	}
}

// requireSignature authenticates webhook deliveries: the header must carry
// the hex HMAC-SHA256 of the raw request body under the shared secret.
func (s *Server) requireSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sig := c.Get(headerSig)
		if sig == "" {
			return fail(c, fiber.StatusUnauthorized, "SIGNATURE_INVALID", "missing webhook signature")
		}

		mac := hmac.New(sha256.New, []byte(s.webhookSecret))
		mac.Write(c.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(sig), []byte(expected)) {
			s.log.Warn("webhook signature rejected", map[string]any{"path": c.Path()})
			return fail(c, fiber.StatusUnauthorized, "SIGNATURE_INVALID", "invalid webhook signature")
		}
		return c.Next()
	}
}

func callerKey(c *fiber.Ctx) *APIKey {
	key, _ := c.Locals(localsKey).(*APIKey)
	return key
}
