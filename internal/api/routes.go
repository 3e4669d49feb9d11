package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/config"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/metrics"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/store"
	"github.com/patitas/patitas-backend/internal/ws"
)

// Deps carries everything the router needs.
type Deps struct {
	Config   *config.Config
	Server   *Server
	Sessions *session.Manager
	Cache    *store.Cache
	Database interfaces.Database
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
	MetricsH http.Handler
	Logger   *zap.SugaredLogger
}

// streamableTables are the change channels exposed over SSE.
var streamableTables = map[string]bool{
	"animals":          true,
	"messages":         true,
	"adoption_stories": true,
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Security.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(MetricsMiddleware(deps.Metrics))
	}
	r.Use(RateLimit(deps.Config.Security.RateLimitRPM))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if !deps.Database.IsHealthy(req.Context()) {
			writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
		if err := deps.Cache.Ping(req.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache not ready")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.MetricsH != nil {
		r.Handle("/metrics", deps.MetricsH)
	}

	s := deps.Server

	r.Route("/v1", func(r chi.Router) {
		// Public reads.
		r.Get("/feed", s.handleFeed)
		r.Get("/animals/{id}", s.handleGetAnimal)
		r.Get("/stories", s.handleListStories)
		r.Get("/stories/{id}", s.handleGetStory)

		// Live updates.
		r.Get("/ws", deps.Hub.ServeWS)
		r.Get("/stream/{table}", func(w http.ResponseWriter, req *http.Request) {
			table := chi.URLParam(req, "table")
			if !streamableTables[table] {
				writeError(w, http.StatusNotFound, "unknown stream")
				return
			}
			ws.SSEHandler(deps.Cache, table, deps.Logger)(w, req)
		})

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Sessions))

			r.Get("/me/animals", s.handleMyAnimals)
			r.Get("/conversations", s.handleListConversations)
			r.Get("/conversations/{id}/messages", s.handleListMessages)
			r.Get("/moderation/reports", s.handleOpenReports)
			r.Get("/moderation/story-reports", s.handleOpenStoryReports)

			// Writes additionally require a non-banned account.
			r.Group(func(r chi.Router) {
				r.Use(RequireActive)

				r.Post("/publications", s.handleSubmit)
				r.Patch("/animals/{id}", s.handleUpdateAnimal)
				r.Post("/animals/{id}/adopted", s.handleMarkAdopted)
				r.Delete("/animals/{id}", s.handleDeleteAnimal)

				r.Post("/animals/{id}/conversations", s.handleStartConversation)
				r.Post("/conversations/{id}/messages", s.handleSendMessage)
				r.Post("/conversations/{id}/read", s.handleMarkRead)

				r.Post("/animals/{id}/reports", s.handleReportAnimal)
				r.Post("/stories/{id}/reports", s.handleReportStory)
				r.Post("/moderation/reports/{id}/resolve", s.handleResolveReport)
				r.Post("/moderation/story-reports/{id}/resolve", s.handleResolveStoryReport)

				r.Post("/stories", s.handlePublishStory)
				r.Delete("/stories/{id}", s.handleDeleteStory)
			})
		})
	})

	return r
}

// StartHub wires the websocket hub to the tables clients watch and
// runs it until ctx is done.
func StartHub(ctx context.Context, hub *ws.Hub, cache *store.Cache) {
	hub.Watch(ctx, cache, "animals", "messages", "adoption_stories")
	go hub.Run(ctx)
}
