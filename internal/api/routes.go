package api

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers every HTTP endpoint on the app.
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/players", h.GetPlayers)
	app.Patch("/players/:id", h.UpdatePlayer)

	app.Get("/matches", h.GetMatches)
	app.Post("/matches", h.CreateMatch)
	app.Patch("/matches/:id", h.UpdateMatch)
	app.Delete("/matches/:id", h.DeleteMatch)

	app.Get("/maps", h.GetMaps)
	app.Post("/maps", h.CreateMap)
	app.Post("/maps/bulk", h.CreateMaps)
	app.Delete("/maps/:id", h.DeleteMap)

	app.Get("/stats/:playerId", h.GetPlayerStats)
	app.Get("/leaderboard", h.GetLeaderboard)

	app.Get("/live", h.GetLiveMatch)
	app.Post("/live/start", h.StartLiveMatch)
	app.Post("/live/events", h.LogLiveEvent)
	app.Post("/live/pause", h.PauseLiveMatch)
	app.Post("/live/resume", h.ResumeLiveMatch)
	app.Post("/live/end", h.EndLiveMatch)
	app.Post("/live/cancel", h.CancelLiveMatch)

	app.Get("/export", h.GetExport)
	app.Get("/events/stream", h.StreamChanges)
}
