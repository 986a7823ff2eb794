package www

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"parttracker/engine"
	"parttracker/tracking"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	unsubscribe := hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Public routes
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/scan/{partID}", h.apiPartStatus)

	// API routes (no auth required for read, shop-floor confirmation is anonymous)
	r.Get("/api/health", h.apiHealthCheck)
	r.Get("/api/me", h.apiMe)
	r.Get("/api/stages", h.apiListStages)
	r.Get("/api/routes", h.apiListRoutes)
	r.Get("/api/routes/{id}", h.apiGetRoute)
	r.Get("/api/products", h.apiListProducts)
	r.Get("/api/products/{product}", h.apiProductProgress)
	r.Get("/api/products/{product}/parts", h.apiProductParts)
	r.Get("/api/parts/{partID}", h.apiPartStatus)
	r.Get("/api/parts/{partID}/history", h.apiPartHistory)
	r.Post("/api/parts/{partID}/confirm", h.apiConfirmStage)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.With(h.requirePerm(tracking.PermManageStages)).Post("/api/stages", h.apiCreateStage)
		r.With(h.requirePerm(tracking.PermManageStages)).Delete("/api/stages/{id}", h.apiDeleteStage)

		r.With(h.requirePerm(tracking.PermManageRoutes)).Post("/api/routes", h.apiCreateRoute)
		r.With(h.requirePerm(tracking.PermManageRoutes)).Put("/api/routes/{id}", h.apiUpdateRoute)
		r.With(h.requirePerm(tracking.PermManageRoutes)).Delete("/api/routes/{id}", h.apiDeleteRoute)

		r.With(h.requirePerm(tracking.PermAddParts)).Post("/api/parts", h.apiCreatePart)
		r.With(h.requirePerm(tracking.PermAddParts)).Post("/api/parts/import", h.apiImportParts)
		r.With(h.requirePerm(tracking.PermEditParts)).Put("/api/parts/{partID}", h.apiUpdatePart)
		r.With(h.requirePerm(tracking.PermDeleteParts)).Delete("/api/parts/{partID}", h.apiDeletePart)
		r.With(h.requirePerm(tracking.PermEditParts)).Delete("/api/history/{id}", h.apiCancelStage)
		r.With(h.requirePerm(tracking.PermGenerateQR, tracking.PermAddParts)).Get("/api/parts/{partID}/qr", h.apiPartQR)

		r.With(h.requirePerm(tracking.PermViewAuditLog)).Get("/api/audit", h.apiAuditLog)
		r.With(h.requirePerm(tracking.PermViewReports)).Get("/api/reports/operators", h.apiOperatorReport)

		r.Group(func(r chi.Router) {
			r.Use(h.requirePerm(tracking.PermManageUsers))
			r.Get("/api/users", h.apiListUsers)
			r.Post("/api/users", h.apiCreateUser)
			r.Put("/api/users/{id}", h.apiUpdateUser)
			r.Delete("/api/users/{id}", h.apiDeleteUser)
		})
	})

	stopFn := func() {
		unsubscribe()
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) ensureDefaultAdmin() {
	created, err := h.engine.Tracking().EnsureDefaultAdmin(context.Background())
	if err != nil {
		log.Printf("auth: create default admin: %v", err)
		return
	}
	if created {
		log.Printf("auth: created default admin user, change its password")
	}
}
