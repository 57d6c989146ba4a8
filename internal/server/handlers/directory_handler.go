package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/directory"
)

// DirectoryHandler manages sections and user accounts.
type DirectoryHandler struct {
	sections *directory.Sections
	users    *directory.Users
	logger   *zap.Logger
}

// NewDirectoryHandler constructs the directory handler.
func NewDirectoryHandler(sections *directory.Sections, users *directory.Users, logger *zap.Logger) *DirectoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryHandler{sections: sections, users: users, logger: logger}
}

// ListSections returns every section sorted by label.
func (h *DirectoryHandler) ListSections(c *gin.Context) {
	secs, err := h.sections.List(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, secs)
}

type sectionRequest struct {
	Label string `json:"label"`
}

// CreateSection adds a section and its empty info template.
func (h *DirectoryHandler) CreateSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sec, err := h.sections.Create(c.Request.Context(), req.Label)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sec)
}

// ListUsers returns all accounts without their passwords.
func (h *DirectoryHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser registers an account.
func (h *DirectoryHandler) CreateUser(c *gin.Context) {
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	user.Password = ""
	c.JSON(http.StatusCreated, user)
}

// UpdateUser replaces the profile fields of an account.
func (h *DirectoryHandler) UpdateUser(c *gin.Context) {
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := c.Param("id")
	if err := h.users.Update(c.Request.Context(), id, req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteUser removes an account.
func (h *DirectoryHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	h.logger.Info("user deleted", zap.String("id", id), zap.String("by", CurrentSession(c).Username))
	c.Status(http.StatusNoContent)
}
