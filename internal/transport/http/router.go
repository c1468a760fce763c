package httptransport

import (
	"expvar"
	"net/http"
	"slices"
	"strings"

	"gamefleet/internal/config"
	"gamefleet/internal/node"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(n *node.Node, cfg config.ServerConfig) *chi.Mux {
	arenaHandlers := NewArenaHandlers(n)
	roomHandlers := NewRoomHandlers(n)
	playerHandlers := NewPlayerHandlers(n)
	userHandlers := NewUserHandlers(n)
	adminHandlers := NewAdminHandlers(n)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/arenas", arenaHandlers.List())
		r.Get("/arenas/available", arenaHandlers.Available())
		r.Get("/arenas/availability", arenaHandlers.Availability())
		r.Get("/local/arenas", arenaHandlers.Local())
		r.Get("/rooms/{room_id}", roomHandlers.Get())
		r.Get("/players/online", playerHandlers.Online())
		r.Get("/players/{player_id}", playerHandlers.Status())
		r.Get("/players/{player_id}/room", roomHandlers.PlayerRoom())
		r.Get("/players/{player_id}/invites", roomHandlers.PlayerInvites())
		r.Get("/users/{player_id}", userHandlers.Get())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))

			r.Post("/local/arenas", arenaHandlers.Register())
			r.Delete("/local/arenas/{arena_id}", arenaHandlers.Unregister())
			r.Post("/arenas/{arena_id}/release", arenaHandlers.Release())

			r.Post("/rooms", roomHandlers.Create())
			r.Delete("/rooms/{room_id}", roomHandlers.Disband())
			r.Post("/rooms/{room_id}/join", roomHandlers.Join())
			r.Post("/rooms/{room_id}/leave", roomHandlers.Leave())
			r.Post("/rooms/{room_id}/owner", roomHandlers.TransferOwner())
			r.Post("/rooms/{room_id}/invites", roomHandlers.Invite())
			r.Post("/rooms/{room_id}/launch", roomHandlers.Launch())
			r.Post("/invites/{invite_id}/accept", roomHandlers.AcceptInvite())
			r.Post("/invites/{invite_id}/decline", roomHandlers.DeclineInvite())

			r.Post("/players/{player_id}/message", playerHandlers.Message())
			r.Post("/players/{player_id}/mail", playerHandlers.Mail())
			r.Post("/players/{player_id}/teleport", playerHandlers.Teleport())
			r.Post("/players/{player_id}/chat", playerHandlers.Chat())
			r.Put("/players/{player_id}/connection", playerHandlers.Connect())
			r.Delete("/players/{player_id}/connection", playerHandlers.Disconnect())
			r.Get("/players/{player_id}/inbox", playerHandlers.Inbox())

			r.Put("/users/{player_id}", userHandlers.Ensure())
			r.Put("/users/{player_id}/paws", userHandlers.SetPaws())
			r.Post("/users/{player_id}/paws", userHandlers.AddPaws())
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})
	return r
}

// LogRoutes prints the registered routes, sorted by path then method.
func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	slices.SortFunc(routes, func(a, b routeDef) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	lines := make([]string, 0, len(routes))
	for _, rt := range routes {
		lines = append(lines, rt.Method+" "+rt.Path)
	}
	log.Info().Int("count", len(routes)).Strs("routes", lines).Msg("registered routes")
}
