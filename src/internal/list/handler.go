package list

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/middleware"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	GetLists(c *gin.Context)
	CreateList(c *gin.Context)
	UpdateList(c *gin.Context)
	DeleteList(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	repository Repository
}

func NewHandler(cfg *config.Configuration, repository Repository) Handler {
	return &handler{
		config:     cfg,
		repository: repository,
	}
}

func (h *handler) GetLists(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, ok := contextUser(c)
	if !ok {
		return
	}

	lists, err := h.repository.FindAllByUser(ctx, u.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get lists")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lists"})
		return
	}

	c.JSON(http.StatusOK, lists)
}

func (h *handler) CreateList(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, ok := contextUser(c)
	if !ok {
		return
	}

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	list := &List{
		Title:  req.Title,
		UserID: u.ID,
	}

	if err := h.repository.Create(ctx, list); err != nil {
		logrus.WithError(err).Error("Failed to create list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating list"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"list_id": list.ID.Hex(),
		"user_id": u.ID.Hex(),
	}).Info("List created")

	c.JSON(http.StatusOK, list)
}

func (h *handler) UpdateList(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, ok := contextUser(c)
	if !ok {
		return
	}

	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	list, err := h.repository.Update(ctx, c.Param("listId"), u.ID, req.Title)
	if err != nil {
		if errors.Is(err, models.ErrListNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "List not found"})
			return
		}
		logrus.WithError(err).Error("Failed to update list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating list"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *handler) DeleteList(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, ok := contextUser(c)
	if !ok {
		return
	}

	if err := h.repository.Delete(ctx, c.Param("listId"), u.ID); err != nil {
		if errors.Is(err, models.ErrListNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "List not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting list"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "List deleted successfully"})
}

func contextUser(c *gin.Context) (*user.User, bool) {
	value, exists := c.Get(middleware.ContextUser)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
		return nil, false
	}
	u, ok := value.(*user.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		c.Abort()
		return nil, false
	}
	return u, true
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}
