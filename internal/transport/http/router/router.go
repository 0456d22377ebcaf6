package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	authmw "github.com/miharyjoe/ameua-sub001/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Core auth
	Register(w http.ResponseWriter, r *http.Request)
	SignIn(w http.ResponseWriter, r *http.Request)
	SignOut(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)

	// Password reset
	PasswordForgot(w http.ResponseWriter, r *http.Request)
	PasswordResetValidate(w http.ResponseWriter, r *http.Request)
	PasswordReset(w http.ResponseWriter, r *http.Request)

	// Account
	PasswordChange(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	SetUserRole(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
}

type ContactHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health  HealthHandler
	Auth    AuthHandler
	Admin   AdminHandler
	Contact ContactHandler

	// Metrics serves /metrics; omitted when nil.
	Metrics http.Handler

	RequestIDMW Middleware
	AuthMW      Middleware
	AdminMW     Middleware

	// Optional. Nil means pass-through.
	MetricsMW      Middleware
	OriginMW       Middleware
	OptionalAuthMW Middleware
	RegisterRL     Middleware
	SignInRL       Middleware
	ForgotRL       Middleware
	ContactRL      Middleware
}

func passthrough(mw Middleware) Middleware {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func New(deps Deps) (http.Handler, error) {
	switch {
	case deps.Health == nil:
		return nil, fmt.Errorf("nil Health handler")
	case deps.Auth == nil:
		return nil, fmt.Errorf("nil Auth handler")
	case deps.Admin == nil:
		return nil, fmt.Errorf("nil Admin handler")
	case deps.Contact == nil:
		return nil, fmt.Errorf("nil Contact handler")
	case deps.RequestIDMW == nil:
		return nil, fmt.Errorf("nil RequestID middleware")
	case deps.AuthMW == nil:
		return nil, fmt.Errorf("nil Auth middleware")
	case deps.AdminMW == nil:
		return nil, fmt.Errorf("nil Admin middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(authmw.SecurityHeaders)
	r.Use(authmw.AccessLog)
	r.Use(passthrough(deps.MetricsMW))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(passthrough(deps.OriginMW))

		r.Route("/auth", func(r chi.Router) {
			// --- Core auth ---
			r.With(passthrough(deps.RegisterRL)).Post("/register", deps.Auth.Register)
			r.With(passthrough(deps.SignInRL)).Post("/signin", deps.Auth.SignIn)
			r.Post("/signout", deps.Auth.SignOut)
			r.With(deps.AuthMW).Get("/me", deps.Auth.Me)

			// --- Password reset ---
			r.With(passthrough(deps.ForgotRL)).Post("/password/forgot", deps.Auth.PasswordForgot)
			r.Get("/password/reset/validate", deps.Auth.PasswordResetValidate) // ?token=...
			r.Post("/password/reset", deps.Auth.PasswordReset)

			// --- Account ---
			r.With(deps.AuthMW).Post("/password/change", deps.Auth.PasswordChange)
		})

		// signed-in senders are limited per user, everyone else per IP
		r.With(passthrough(deps.OptionalAuthMW), passthrough(deps.ContactRL)).Post("/contact", deps.Contact.Submit)

		// --- Admin (privileged) ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Use(deps.AdminMW)

			r.Get("/users", deps.Admin.ListUsers)
			r.Patch("/users/{id}/role", deps.Admin.SetUserRole)
			r.Delete("/users/{id}", deps.Admin.DeleteUser)
		})
	})

	return r, nil
}
