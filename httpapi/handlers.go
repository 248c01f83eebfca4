package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID             string `json:"userId"`
	Email              string `json:"email"`
	ConfirmationQueued bool   `json:"confirmationQueued"`
}

type loginResponse struct {
	UserID       string    `json:"userId"`
	OTPExpiresAt time.Time `json:"otpExpiresAt"`
}

type validateOTPRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	UserID           string    `json:"userId"`
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

type confirmEmailRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type profileResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	Is2FAEnabled    bool       `json:"is2faEnabled"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toProfileResponse(p *authcore.UserProfile) profileResponse {
	return profileResponse{
		ID:              p.ID,
		Email:           p.Email,
		IsEmailVerified: p.IsEmailVerified,
		Is2FAEnabled:    p.Is2FAEnabled,
		LastLoginAt:     p.LastLoginAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		UserID:             res.UserID,
		Email:              res.Email,
		ConfirmationQueued: res.ConfirmationQueued,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, authcore.ErrUserNotFound) {
		// Unknown accounts answer exactly like a wrong password.
		err = authcore.ErrInvalidCredentials
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{UserID: res.UserID, OTPExpiresAt: res.OTPExpiresAt})
}

func (h *handler) validateOTP(w http.ResponseWriter, r *http.Request) {
	var req validateOTPRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	s, err := h.svc.ValidateOTP(r.Context(), req.UserID, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, s)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, s)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), raw); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req userIDRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	if err := h.svc.SendConfirmationEmail(r.Context(), req.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *handler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	h.doConfirm(w, r, req.UserID, req.Token)
}

// confirmEmailLink serves the link embedded in confirmation mails.
func (h *handler) confirmEmailLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.doConfirm(w, r, q.Get("user_id"), q.Get("token"))
}

func (h *handler) doConfirm(w http.ResponseWriter, r *http.Request, userID, token string) {
	if err := h.svc.ConfirmEmail(r.Context(), userID, token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *handler) emailAvailability(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.IsEmailAvailable(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	p, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *handler) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req updateEmailRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	p, err := h.svc.UpdateEmail(r.Context(), userID, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.svc.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.svc.DeleteUser(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// refreshToken reads the token from the body, falling back to the cookie.
func (h *handler) refreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.badRequest(w, "invalid request body")
		return "", false
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, true
	}
	if c, err := r.Cookie(h.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	h.badRequest(w, "refresh token required")
	return "", false
}

func (h *handler) writeSession(w http.ResponseWriter, s *authcore.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    s.RefreshToken,
		Path:     h.cfg.CookiePath,
		Expires:  s.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:           s.UserID,
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
	})
}

func (h *handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     h.cfg.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
