package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/api/chat"
	"github.com/FACorreiaa/kamino-places-api/internal/api/narrative"
	"github.com/FACorreiaa/kamino-places-api/internal/api/places"

	_ "github.com/FACorreiaa/kamino-places-api/docs"
)

const serviceName = "kamino-places-api"

// Config contains dependencies needed for the router setup.
type Config struct {
	PlacesHandler    *places.Handler
	NarrativeHandler *narrative.Handler
	ChatHandler      *chat.Handler
	// AdminMiddleware guards the destructive and maintenance routes.
	AdminMiddleware func(http.Handler) http.Handler
	AllowedOrigins  []string
}

// Health godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200 {object} api.Envelope{data=api.HealthResponse}
// @Router       /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	api.WriteEnvelope(w, r, http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
	})
}

// SetupRouter wires every API route. Server-wide middleware (request id,
// logging, recoverer) is applied by the caller before mounting it.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	admin := cfg.AdminMiddleware
	if admin == nil {
		admin = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", Health)

		r.Route("/places", func(r chi.Router) {
			p := cfg.PlacesHandler
			r.Post("/", p.CreatePlace)
			r.Get("/", p.ListPlaces)
			r.Post("/bulk", p.CreatePlacesBulk)
			r.Post("/nearby", p.FindNearby)
			r.Get("/available-now", p.AvailableNow)
			r.Get("/categories", p.GetCategories)
			r.Get("/tags", p.GetTags)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Delete("/admin/complete-delete-all", p.DeleteAllPlaces)
				r.Post("/admin/narratives/refresh", cfg.NarrativeHandler.RefreshNarratives)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", p.GetPlace)
				r.Patch("/", p.UpdatePlace)
				r.Delete("/", p.DeletePlace)
				r.Get("/schedule", p.GetSchedule)
				r.Patch("/toggle-hidden-gem", p.ToggleHiddenGem)

				n := cfg.NarrativeHandler
				r.Post("/narrative", n.UploadNarrative)
				r.Get("/narrative", n.GetNarrative)
				r.Delete("/narrative", n.DeleteNarrative)
			})
		})

		r.Get("/narrator/{placeId}", cfg.NarrativeHandler.Narrate)
		r.Post("/gemini/ask", cfg.NarrativeHandler.Ask)
		r.Post("/gemini/ask-with-narrative", cfg.NarrativeHandler.AskWithNarrative)
		r.Post("/chat", cfg.ChatHandler.HandleMessage)
	})

	return r
}
