package api

import (
	"github.com/gorilla/mux"

	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/pkg/models"
)

// Services are the coordinators and matchers the routes delegate to.
type Services struct {
	Seekers        *persist.Coordinator[models.Seeker, models.SeekerInput]
	Listings       *persist.Coordinator[models.Listing, models.ListingInput]
	SeekerMatches  *match.Notifier[models.Seeker, models.Listing]
	ListingMatches *match.Notifier[models.Listing, models.Seeker]

	// Checks are run by /health, keyed by backend name.
	Checks map[string]HealthCheck
}

func SetupRoutes(cfg *config.Config, version, buildTime string, svc Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{Checks: svc.Checks}
	authHandler := NewAuthHandler(cfg.APIKeyHash, cfg.JWTSecret, cfg.TokenDuration)
	seekers := NewRecordHandler(svc.Seekers, svc.SeekerMatches)
	listings := NewRecordHandler(svc.Listings, svc.ListingMatches)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/token", authHandler.Token).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Seeker endpoints
	apiV1.HandleFunc("/seekers", seekers.Create).Methods("POST")
	apiV1.HandleFunc("/seekers/{segment}/{id}", seekers.Get).Methods("GET")
	apiV1.HandleFunc("/seekers/{segment}/{id}", seekers.Update).Methods("PUT")
	apiV1.HandleFunc("/seekers/{segment}/{id}", seekers.Delete).Methods("DELETE")
	apiV1.HandleFunc("/seekers/{segment}/{id}/matches", seekers.Matches).Methods("GET")

	// Listing endpoints
	apiV1.HandleFunc("/listings", listings.Create).Methods("POST")
	apiV1.HandleFunc("/listings/{segment}/{id}", listings.Get).Methods("GET")
	apiV1.HandleFunc("/listings/{segment}/{id}", listings.Update).Methods("PUT")
	apiV1.HandleFunc("/listings/{segment}/{id}", listings.Delete).Methods("DELETE")
	apiV1.HandleFunc("/listings/{segment}/{id}/matches", listings.Matches).Methods("GET")

	return r
}
