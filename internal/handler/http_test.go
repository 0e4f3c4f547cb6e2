package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"plotforge/internal/handler"
	"plotforge/internal/mocks"
	"plotforge/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newRouter(stories *mocks.StoryRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := handler.New(nil, stories, nil, nil, zap.NewNop())
	h.RegisterRoutes(router)
	return router
}

func TestGetStoryNotFound(t *testing.T) {
	stories := new(mocks.StoryRepository)
	storyID := uuid.New()
	stories.On("GetByID", mock.Anything, mock.Anything, storyID).
		Return(nil, models.ErrStoryNotFound)
	router := newRouter(stories)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+storyID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "story not found")
}

func TestGetStoryRejectsMalformedID(t *testing.T) {
	router := newRouter(new(mocks.StoryRepository))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStoryOK(t *testing.T) {
	stories := new(mocks.StoryRepository)
	storyID := uuid.New()
	stories.On("GetByID", mock.Anything, mock.Anything, storyID).
		Return(&models.Story{ID: storyID, Title: "The Vault"}, nil)
	router := newRouter(stories)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+storyID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The Vault")
}
