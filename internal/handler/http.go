// Package handler exposes the story engine over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"
	"plotforge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler holds the HTTP endpoints.
type Handler struct {
	db       interfaces.DBTX
	stories  interfaces.StoryRepository
	advance  *service.AdvanceService
	branches *service.BranchService
	logger   *zap.Logger
}

// New creates the handler.
func New(db interfaces.DBTX, stories interfaces.StoryRepository, advance *service.AdvanceService, branches *service.BranchService, logger *zap.Logger) *Handler {
	return &Handler{
		db:       db,
		stories:  stories,
		advance:  advance,
		branches: branches,
		logger:   logger.Named("HTTPHandler"),
	}
}

// RegisterRoutes mounts the API on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/stories", h.CreateStory)
		api.GET("/stories/:id", h.GetStory)
		api.POST("/stories/:id/advance", h.Advance)
		api.POST("/stories/:id/fork", h.Fork)
		api.GET("/stories/:id/tree", h.BranchTree)
	}
}

// CreateStory starts a new story.
func (h *Handler) CreateStory(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid userId"})
		return
	}

	story := &models.Story{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     req.Title,
		Outline:   req.Outline,
		Genre:     req.Genre,
		Tone:      req.Tone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.stories.Create(c.Request.Context(), h.db, story); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// GetStory returns a story by id.
func (h *Handler) GetStory(c *gin.Context) {
	storyID, ok := h.storyID(c)
	if !ok {
		return
	}
	story, err := h.stories.GetByID(c.Request.Context(), h.db, storyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// Advance generates and activates the next chapter of a branch.
func (h *Handler) Advance(c *gin.Context) {
	storyID, ok := h.storyID(c)
	if !ok {
		return
	}

	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var userID *uuid.UUID
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid userId"})
			return
		}
		userID = &id
	}

	result, err := h.advance.Advance(c.Request.Context(), service.AdvanceRequest{
		StoryID:       storyID,
		BranchNumber:  req.BranchNumber,
		ChapterNumber: req.ChapterNumber,
		ChoiceID:      req.ChoiceID,
		UserID:        userID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AdvanceResponse{
		Chapter:      result.Chapter,
		Choices:      result.Choices,
		BranchNumber: result.BranchNumber,
		Forked:       result.Forked,
	})
}

// Fork creates a branch explicitly at a chosen chapter.
func (h *Handler) Fork(c *gin.Context) {
	storyID, ok := h.storyID(c)
	if !ok {
		return
	}

	var req ForkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	branch, err := h.branches.Fork(c.Request.Context(), storyID, req.FromBranch, req.ForkChapter, req.Label)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}

// BranchTree returns every branch of the story with its active chapters.
func (h *Handler) BranchTree(c *gin.Context) {
	storyID, ok := h.storyID(c)
	if !ok {
		return
	}

	nodes, err := h.branches.BranchTree(c.Request.Context(), storyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BranchTreeResponse{StoryID: storyID, Branches: nodes})
}

func (h *Handler) storyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidChoice), errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrBranchNotFound),
		errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrPersistenceConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrSlotBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, models.ErrGenerationFailed):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Error: models.ErrInternalServer.Error()})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
