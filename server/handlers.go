package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/stablepay/stablepay/types"
)

func (s *Server) handleCreate(c *fiber.Ctx) error {
	var req types.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "invalid request body")
	}

	if req.Metadata == nil {
		req.Metadata = make(map[string]any)
	}
	req.Metadata["clientIp"] = c.IP()
	req.Metadata["userAgent"] = c.Get(fiber.HeaderUserAgent)
	if key := callerKey(c); key != nil {
		req.Metadata["apiKeyName"] = key.Name
	}

	payment, err := s.gateway.CreatePayment(req)
	if err != nil {
		return failErr(c, err)
	}
	return created(c, payment)
}

func (s *Server) handleVerify(c *fiber.Ctx) error {
	var req types.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "invalid request body")
	}

	payment, err := s.gateway.VerifyPayment(c.Context(), req)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, payment)
}

// handleStatus returns one payment. Non-admin callers only see payments
// created under their own key, and get a redacted view without internal
// metadata.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	payment, err := s.gateway.GetPayment(c.Params("paymentId"))
	if err != nil {
		return failErr(c, err)
	}

	if key := callerKey(c); key == nil || !key.HasPermission(PermAdmin) {
		owner, _ := payment.Metadata["apiKeyName"].(string)
		if key == nil || (owner != "" && owner != key.Name) {
			return fail(c, fiber.StatusNotFound, types.ErrPaymentNotFound, "payment not found")
		}
		payment.Metadata = nil
	}
	return ok(c, payment)
}

func (s *Server) handleList(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page := s.gateway.ListPayments(types.ListFilter{
		Status:  types.Status(c.Query("status")),
		Network: c.Query("network"),
		Token:   c.Query("token"),
		Limit:   limit,
		Offset:  offset,
	})
	return ok(c, page)
}

func (s *Server) handleBalance(c *fiber.Ctx) error {
	if network := c.Query("network"); network != "" {
		balances, err := s.gateway.Balances(c.Context(), network)
		if err != nil {
			return failErr(c, err)
		}
		return ok(c, balances)
	}
	return ok(c, s.gateway.AllBalances(c.Context()))
}

func (s *Server) handleNetworks(c *fiber.Ctx) error {
	return ok(c, s.gateway.Networks())
}

func (s *Server) handleNetworkInfo(c *fiber.Ctx) error {
	cfg, err := s.gateway.NetworkInfo(c.Params("networkKey"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, cfg)
}

func (s *Server) handleTokens(c *fiber.Ctx) error {
	tokens, err := s.gateway.SupportedTokens(c.Params("networkKey"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, tokens)
}

func (s *Server) handlePaymentConfirmed(c *fiber.Ctx) error {
	var w types.ConfirmationWebhook
	if err := c.BodyParser(&w); err != nil {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "invalid request body")
	}

	payment, err := s.gateway.ConfirmPayment(w)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, payment)
}

// handleTransferNotification accepts an observed inbound transfer and
// tries to auto-match it to a pending payment. A notification that matches
// nothing still succeeds; it may be unrelated traffic.
func (s *Server) handleTransferNotification(c *fiber.Ctx) error {
	var n types.TransferNotification
	if err := c.BodyParser(&n); err != nil {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "invalid request body")
	}

	payment, err := s.gateway.HandleTransferNotification(c.Context(), n)
	if err != nil {
		return failErr(c, err)
	}
	if payment == nil {
		return ok(c, fiber.Map{"matched": false})
	}
	return ok(c, fiber.Map{"matched": true, "payment": payment})
}

func (s *Server) handleCreateKey(c *fiber.Ctx) error {
	var req struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
		RateLimit   int      `json:"rateLimit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "name is required")
	}

	key, err := s.keys.Generate(req.Name, req.Permissions, req.RateLimit)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "key generation failed")
	}

	s.log.Info("api key created", map[string]any{"name": key.Name})
	return created(c, key)
}

func (s *Server) handleListKeys(c *fiber.Ctx) error {
	return ok(c, s.keys.List())
}

func (s *Server) handleRevokeKey(c *fiber.Ctx) error {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return fail(c, fiber.StatusBadRequest, types.ErrInvalidRequest, "key is required")
	}

	if !s.keys.Revoke(req.Key) {
		return fail(c, fiber.StatusNotFound, "KEY_NOT_FOUND", "unknown API key")
	}
	return ok(c, fiber.Map{"revoked": true})
}

// handleKeyInfo describes the caller's own key.
func (s *Server) handleKeyInfo(c *fiber.Ctx) error {
	key := callerKey(c)
	if key == nil {
		return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing API key")
	}
	info := *key
	info.MaskedKey = maskKey(info.Key)
	info.Key = ""
	return ok(c, &info)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"status":  "ok",
		"version": version,
	})
}
