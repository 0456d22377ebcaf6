package http_handlers

import (
	"net/http"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/dto"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/middleware"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) authData(res auth.SignInResult) dto.AuthData {
	return dto.AuthData{
		User: dto.NewUserView(res.User),
		Session: dto.SessionView{
			Token:     res.Token,
			TokenType: "Bearer",
			ExpiresAt: res.Session.ExpiresAt,
		},
		Redirect: res.Redirect,
	}
}

func (h *AuthHandler) setSession(w http.ResponseWriter, res auth.SignInResult) {
	ttl := time.Until(res.Session.ExpiresAt)
	if ttl <= 0 {
		ttl = h.sessionTTL
	}
	security.SetSessionToken(w, res.Token, ttl, h.secureCookies)
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	h.setSession(w, res.SignIn)
	response.Created(w, h.authData(res.SignIn))
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_signed_in")

	h.setSession(w, res)
	response.OK(w, h.authData(res))
}

// SignOut handles POST /api/v1/auth/signout. Sessions are stateless, so
// this only clears the cookie; it is idempotent.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	security.ClearSessionToken(w, h.secureCookies)
	response.NoContent(w)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CurrentUser(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MeData{User: dto.NewUserView(u)})
}

// PasswordForgot handles POST /api/v1/auth/password/forgot
func (h *AuthHandler) PasswordForgot(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordForgotRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	msg, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MessageData{Message: msg})
}

// PasswordResetValidate handles GET /api/v1/auth/password/reset/validate?token=...
func (h *AuthHandler) PasswordResetValidate(w http.ResponseWriter, r *http.Request) {
	q := dto.PasswordResetValidateQuery{Token: r.URL.Query().Get("token")}
	if err := q.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ValidateResetToken(r.Context(), q.Token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.TokenValidityData{Valid: true})
}

// PasswordReset handles POST /api/v1/auth/password/reset
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.RedeemPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MessageData{Message: "Password has been reset. You can now sign in."})
}

// PasswordChange handles POST /api/v1/auth/password/change
func (h *AuthHandler) PasswordChange(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		response.WriteError(w, r, domain.ErrUnauthorized())
		return
	}

	var req dto.PasswordChangeRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), sess.UserID, req.OldPassword, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MessageData{Message: "Password changed."})
}
