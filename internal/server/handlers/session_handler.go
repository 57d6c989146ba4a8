package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/auth"
	"github.com/nicefood/prodtrack/internal/service/directory"
)

// SessionHandler serves login and the caller's own profile.
type SessionHandler struct {
	authn  *auth.Authenticator
	users  *directory.Users
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionHandler constructs the session handler.
func NewSessionHandler(authn *auth.Authenticator, users *directory.Users, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{authn: authn, users: users, now: time.Now, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and returns the session payload. period_mismatch
// tells the client the active period is not the calendar month.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	s, err := h.authn.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	h.logger.Info("user logged in", zap.String("username", s.Username), zap.String("role", s.Role))
	c.JSON(http.StatusOK, gin.H{
		"session":         s,
		"period_mismatch": s.CurrentPeriod != models.CurrentPeriodDisplay(h.now()),
	})
}

// Me returns the session of the authenticated caller.
func (h *SessionHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentSession(c))
}

type currentPeriodRequest struct {
	Period string `json:"period"`
}

// SetCurrentPeriod switches the caller's active period to one they were granted.
func (h *SessionHandler) SetCurrentPeriod(c *gin.Context) {
	var req currentPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	display, err := periodDisplay(req.Period)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	user, err := h.users.SetCurrentPeriod(c.Request.Context(), CurrentSession(c).ID, display)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, auth.NewSession(user))
}
