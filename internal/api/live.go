package api

import (
	"github.com/gofiber/fiber/v2"

	"tracker/internal/game"
)

// GetLiveMatch returns the active match with its timeline in timestamp
// order, or a null body when none is running.
func (h *Handler) GetLiveMatch(c *fiber.Ctx) error {
	am, err := h.svc.ActiveMatch(c.Context())
	if err != nil {
		return fail(c, err)
	}
	if am != nil {
		am.Events = am.Timeline()
	}
	return c.JSON(fiber.Map{"active": am})
}

type liveStartRequest struct {
	MapID    string   `json:"mapId"`
	AIColors []string `json:"aiColors"`
}

// StartLiveMatch opens the single live slot.
func (h *Handler) StartLiveMatch(c *fiber.Ctx) error {
	var req liveStartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	am, err := h.svc.StartLiveMatch(c.Context(), req.MapID, req.AIColors)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(am)
}

type liveEventRequest struct {
	Type     game.EventKind `json:"type"`
	PlayerID game.PlayerID  `json:"playerId"`
	AIID     string         `json:"aiId"`
}

// LogLiveEvent appends a timeline event. Timestamps are assigned server-side.
func (h *Handler) LogLiveEvent(c *fiber.Ctx) error {
	var req liveEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	e := game.LiveEvent{Kind: req.Type, PlayerID: req.PlayerID, AIID: req.AIID}
	if err := h.svc.LogLiveEvent(c.Context(), e); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PauseLiveMatch stops the match clock.
func (h *Handler) PauseLiveMatch(c *fiber.Ctx) error {
	if err := h.svc.PauseLiveMatch(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResumeLiveMatch restarts the match clock.
func (h *Handler) ResumeLiveMatch(c *fiber.Ctx) error {
	if err := h.svc.ResumeLiveMatch(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type liveEndRequest struct {
	ElapsedSeconds int            `json:"elapsedSeconds"`
	Result         game.Result    `json:"result"`
	WinnerID       *game.PlayerID `json:"winnerId"`
}

// EndLiveMatch converts the active match into a permanent record.
func (h *Handler) EndLiveMatch(c *fiber.Ctx) error {
	var req liveEndRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	m, err := h.svc.EndLiveMatch(c.Context(), req.ElapsedSeconds, req.WinnerID, req.Result)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// CancelLiveMatch discards the active match without recording anything.
func (h *Handler) CancelLiveMatch(c *fiber.Ctx) error {
	if err := h.svc.CancelLiveMatch(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
