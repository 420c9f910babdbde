package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sharebox/internal/models"
	"sharebox/internal/sharing"
)

// ShareHandler handles share lifecycle operations via JSON API.
type ShareHandler struct {
	svc          *sharing.Service
	log          *zap.Logger
	defaultHours int
}

// NewShareHandler creates a new API share handler. defaultHours is used when
// a create request omits durationHours.
func NewShareHandler(svc *sharing.Service, log *zap.Logger, defaultHours int) *ShareHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShareHandler{svc: svc, log: log, defaultHours: defaultHours}
}

// requesterID returns the signed-in user's id, or nil for anonymous callers.
func requesterID(c fiber.Ctx) *uuid.UUID {
	user, ok := c.Locals("user").(*models.User)
	if !ok || user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// Create creates a new share.
func (h *ShareHandler) Create(c fiber.Ctx) error {
	var body struct {
		Password      *string `json:"password"`
		DurationHours *int    `json:"durationHours"`
		Title         *string `json:"title"`
	}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	hours := h.defaultHours
	if body.DurationHours != nil {
		hours = *body.DurationHours
	}

	res, err := h.svc.Create(c.Context(), sharing.CreateInput{
		Password:      body.Password,
		DurationHours: hours,
		OwnerID:       requesterID(c),
		Title:         body.Title,
		ClientKey:     c.IP(),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return jsonCreated(c, models.CreateShareResponse{
		ShareLink: res.Link,
		ExpiresAt: res.ExpiresAt,
		ShareID:   res.ShareID,
	})
}

// Verify checks that a share is live and that the password, if any, matches.
func (h *ShareHandler) Verify(c fiber.Ctx) error {
	var body struct {
		Password *string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	resp, err := h.svc.VerifyAccess(c.Context(), c.Params("link"), body.Password, c.IP())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonSuccess(c, resp)
}

// Delete removes a share owned by the caller.
func (h *ShareHandler) Delete(c fiber.Ctx) error {
	resp, err := h.svc.DeleteShare(c.Context(), c.Params("ref"), requesterID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonSuccess(c, resp)
}

// Extend pushes back the expiry of a share owned by the caller.
func (h *ShareHandler) Extend(c fiber.Ctx) error {
	var body struct {
		AdditionalHours int `json:"additionalHours"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	share, err := h.svc.ExtendShare(c.Context(), c.Params("ref"), requesterID(c), body.AdditionalHours)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return jsonSuccess(c, models.ExtendShareResponse{
		ID:        share.ID,
		Link:      share.Link,
		ExpiresAt: share.ExpiresAt,
	})
}

// ListOwned returns the caller's shares, expired ones included.
func (h *ShareHandler) ListOwned(c fiber.Ctx) error {
	owner := requesterID(c)
	if owner == nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	shares, err := h.svc.ListOwned(c.Context(), *owner)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonSuccess(c, fiber.Map{"shares": shares})
}
