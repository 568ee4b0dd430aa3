package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"tracker/internal/db"
	"tracker/internal/export"
	"tracker/internal/game"
	"tracker/internal/live"
	"tracker/internal/logging"
	"tracker/internal/tracker"
)

// Handler wires the core service to the HTTP transport.
type Handler struct {
	svc      *tracker.Service
	exporter *export.Service
	store    *db.Store
	notifier *db.Notifier
}

// NewHandler builds the HTTP handler set.
func NewHandler(svc *tracker.Service, exporter *export.Service, store *db.Store, notifier *db.Notifier) *Handler {
	return &Handler{svc: svc, exporter: exporter, store: store, notifier: notifier}
}

// fail maps core errors onto HTTP statuses: validation → 400, state machine
// violations → 409, missing records → 404, everything else → 500.
func fail(c *fiber.Ctx, err error) error {
	var verr *game.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
	case errors.Is(err, live.ErrNoActiveMatch), errors.Is(err, live.ErrMatchInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		logging.Logger().Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// GetPlayers returns both players.
func (h *Handler) GetPlayers(c *fiber.Ctx) error {
	players, err := h.svc.Players(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(players)
}

type playerUpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// UpdatePlayer applies a partial name/color edit.
func (h *Handler) UpdatePlayer(c *fiber.Ctx) error {
	var req playerUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := h.svc.UpdatePlayer(c.Context(), game.PlayerID(c.Params("id")), req.Name, req.Color); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMatches lists matches newest-first, with optional mapId, winnerId, from
// and to query filters.
func (h *Handler) GetMatches(c *fiber.Ctx) error {
	filter := db.MatchFilter{
		MapID:    c.Query("mapId"),
		WinnerID: game.PlayerID(c.Query("winnerId")),
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "from must be an RFC 3339 timestamp")
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "to must be an RFC 3339 timestamp")
		}
		filter.To = &t
	}

	matches, err := h.svc.Matches(c.Context(), filter)
	if err != nil {
		return fail(c, err)
	}
	if matches == nil {
		matches = []game.Match{}
	}
	return c.JSON(matches)
}

type matchRequest struct {
	Date     *time.Time              `json:"date"`
	MapID    string                  `json:"mapId"`
	MapName  string                  `json:"mapName"`
	Duration *int                    `json:"duration"`
	Result   game.Result             `json:"result"`
	WinnerID *game.PlayerID          `json:"winnerId"`
	Players  []game.PlayerMatchEntry `json:"players"`
	Events   []game.LiveEvent        `json:"events"`
	Notes    string                  `json:"notes"`
}

// CreateMatch records a manually entered match.
func (h *Handler) CreateMatch(c *fiber.Ctx) error {
	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	if len(req.Players) != 2 {
		return badRequest(c, "exactly two player entries are required")
	}

	m := &game.Match{
		MapID:    req.MapID,
		MapName:  req.MapName,
		Duration: req.Duration,
		Result:   req.Result,
		WinnerID: req.WinnerID,
		Players:  [2]game.PlayerMatchEntry{req.Players[0], req.Players[1]},
		Events:   req.Events,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		m.Date = *req.Date
	}

	created, err := h.svc.AddMatch(c.Context(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

type matchUpdateRequest struct {
	Date     *time.Time     `json:"date"`
	MapID    *string        `json:"mapId"`
	Duration *int           `json:"duration"`
	Result   *game.Result   `json:"result"`
	WinnerID *game.PlayerID `json:"winnerId"`
	Notes    *string        `json:"notes"`
}

// UpdateMatch applies a partial match edit.
func (h *Handler) UpdateMatch(c *fiber.Ctx) error {
	var req matchUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	upd := tracker.MatchUpdate{
		Date:     req.Date,
		MapID:    req.MapID,
		Duration: req.Duration,
		Result:   req.Result,
		WinnerID: req.WinnerID,
		Notes:    req.Notes,
	}
	if err := h.svc.UpdateMatch(c.Context(), c.Params("id"), upd); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMatch removes a match record.
func (h *Handler) DeleteMatch(c *fiber.Ctx) error {
	if err := h.svc.DeleteMatch(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMaps returns the map catalog.
func (h *Handler) GetMaps(c *fiber.Ctx) error {
	maps, err := h.svc.Maps(c.Context())
	if err != nil {
		return fail(c, err)
	}
	if maps == nil {
		maps = []game.MapInfo{}
	}
	return c.JSON(maps)
}

type mapRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// CreateMap adds one catalog entry.
func (h *Handler) CreateMap(c *fiber.Ctx) error {
	var req mapRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	m, err := h.svc.AddMap(c.Context(), req.Name, req.Category)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

type mapBulkRequest struct {
	Names    []string `json:"names"`
	Category string   `json:"category"`
}

// CreateMaps adds a batch of catalog entries ("map pack").
func (h *Handler) CreateMaps(c *fiber.Ctx) error {
	var req mapBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	if req.Category == "" {
		req.Category = "Map Pack"
	}
	maps, err := h.svc.AddMaps(c.Context(), req.Names, req.Category)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(maps)
}

// DeleteMap removes a catalog entry.
func (h *Handler) DeleteMap(c *fiber.Ctx) error {
	if err := h.svc.DeleteMap(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPlayerStats returns one player's derived standing.
func (h *Handler) GetPlayerStats(c *fiber.Ctx) error {
	stats, err := h.svc.PlayerStats(c.Context(), game.PlayerID(c.Params("playerId")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// GetLeaderboard returns the head-to-head view.
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	h2h, err := h.svc.HeadToHead(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(h2h)
}

// GetExport streams a full backup as a JSON download.
func (h *Handler) GetExport(c *fiber.Ctx) error {
	backup, err := h.exporter.Snapshot(c.Context())
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+backup.Filename()+`"`)
	return c.JSON(backup)
}
