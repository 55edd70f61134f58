// Package handler exposes the HTTP surface: sessions, request intake,
// administrator review and the nearest-center lookup.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ecoroute/internal/geo"
	"ecoroute/internal/session"
)

// Deps holds everything NewRouter wires together.
type Deps struct {
	Environment    string
	DB             Pinger
	Gate           *session.Gate
	Tokens         TokenSigner
	Identities     IdentityService
	Requests       RequestService
	Receiver       PhotoReceiver
	Pipeline       Submitter
	Registry       *geo.Registry
	AllowedOrigins []string
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           int((12 * time.Hour).Seconds()),
		}))
	}

	r.Get("/health", healthHandler(d.DB))
	r.Get("/api/v1/status", statusHandler(d.Environment))

	if d.Registry != nil {
		r.Get("/centers/nearest", nearestCenterHandler(d.Registry))
	}

	sessions := NewSessionsHandler(d.Identities, d.Tokens, d.Gate)
	profile := NewProfileHandler(d.Identities, d.Requests)
	intakeH := NewIntakeHandler(d.Receiver, d.Pipeline)
	review := NewAdminRequestsHandler(d.Requests)

	r.Post("/reporters", sessions.CreateReporter)
	r.Post("/reporters/login", sessions.LoginReporter)
	r.Post("/admin", sessions.CreateAdministrator)
	r.Post("/admin/login", sessions.LoginAdministrator)
	r.Get("/logout", sessions.Logout)

	r.Group(func(r chi.Router) {
		r.Use(d.Gate.RequireReporter())
		r.Get("/reporters/me", profile.Me)
		r.Post("/requests/garbage", intakeH.Garbage)
		r.Post("/requests/recyclable", intakeH.Recyclable)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Gate.RequireAdministrator())
		r.Get("/admin/me", profile.AdminMe)
		r.Get("/admin/requests/{kind}", review.List)
		r.Post("/admin/requests/{kind}/{id}/complete", review.Complete)
	})

	return r
}
