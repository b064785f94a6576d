package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/roomsync/internal/auth"
	"github.com/mmynk/roomsync/internal/metrics"
	"github.com/mmynk/roomsync/internal/middleware"
)

// NewRouter wires the REST routes. Everything except registration, login,
// health and metrics requires a bearer token.
func NewRouter(h *Handler, jwtManager *auth.JWTManager, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(m))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtManager))

		r.Post("/groups", h.CreateGroup)
		r.Post("/groups/join", h.JoinGroup)
		r.Get("/groups/{groupID}/balances", h.GroupBalances)
		r.Get("/groups/{groupID}/history", h.DebtHistory)
		r.Get("/groups/{groupID}/settlement", h.SettlementPlan)

		r.Post("/expenses", h.CreateExpense)
		r.Post("/expenses/pay", h.RecordPayment)
		r.Get("/expenses/me", h.PersonalSummary)
		r.Post("/expenses/recurring", h.CreateRecurringExpense)
		r.Post("/expenses/recurring/generate", h.GenerateRecurring)
	})

	return r
}
