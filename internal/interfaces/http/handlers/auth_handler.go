package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/flame-data/internal/application/auth"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/pkg/errors"
)

// AuthHandler serves registration, login, logout and the current user.
type AuthHandler struct {
	svc    auth.Service
	cookie config.AuthConfig
}

func NewAuthHandler(svc auth.Service, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cfg}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setCookie(c, sess.Token, sess.ExpiresAt)
	respond(c, http.StatusCreated, sess.User)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setCookie(c, sess.Token, sess.ExpiresAt)
	respond(c, http.StatusOK, sess.User)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.CookieName); err == nil && token != "" {
		if err := h.svc.Logout(c.Request.Context(), token); err != nil {
			respondError(c, err)
			return
		}
	}
	h.setCookie(c, "", time.Unix(0, 0))
	respond(c, http.StatusOK, nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		respondError(c, errors.Unauthorized())
		return
	}
	respond(c, http.StatusOK, &user.User{ID: u.ID, Email: u.Email})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if token == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, token, maxAge, "/", h.cookie.CookieDomain, h.cookie.CookieSecure, true)
}
