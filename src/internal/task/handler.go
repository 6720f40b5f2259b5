package task

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/list"
	"tasklist-svc/src/internal/middleware"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

type Handler interface {
	GetTasks(c *gin.Context)
	CreateTask(c *gin.Context)
	UpdateTask(c *gin.Context)
	DeleteTask(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	repository Repository
	lists      list.Repository
}

func NewHandler(cfg *config.Configuration, repository Repository, lists list.Repository) Handler {
	return &handler{
		config:     cfg,
		repository: repository,
		lists:      lists,
	}
}

func (h *handler) GetTasks(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	parent, ok := h.ownedList(ctx, c)
	if !ok {
		return
	}

	tasks, err := h.repository.FindAllByList(ctx, parent.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get tasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *handler) CreateTask(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	parent, ok := h.ownedList(ctx, c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	task := &Task{
		Title:  req.Title,
		ListID: parent.ID,
	}

	if err := h.repository.Create(ctx, task); err != nil {
		logrus.WithError(err).Error("Failed to create task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating task"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id": task.ID.Hex(),
		"list_id": parent.ID.Hex(),
	}).Info("Task created")

	c.JSON(http.StatusOK, task)
}

func (h *handler) UpdateTask(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	parent, ok := h.ownedList(ctx, c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Title == nil && req.Completed == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	update := bson.M{}
	if req.Title != nil {
		update["title"] = *req.Title
	}
	if req.Completed != nil {
		update["completed"] = *req.Completed
	}

	task, err := h.repository.Update(ctx, c.Param("taskId"), parent.ID, update)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		logrus.WithError(err).Error("Failed to update task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *handler) DeleteTask(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	parent, ok := h.ownedList(ctx, c)
	if !ok {
		return
	}

	task, err := h.repository.Delete(ctx, c.Param("taskId"), parent.ID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// ownedList resolves the :listId parameter against the authenticated user, so
// task routes can never reach into someone else's list.
func (h *handler) ownedList(ctx context.Context, c *gin.Context) (*list.List, bool) {
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

	parent, err := h.lists.FindByIDAndUser(ctx, c.Param("listId"), u.ID)
	if err != nil {
		if errors.Is(err, models.ErrListNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "List not found"})
			return nil, false
		}
		logrus.WithError(err).Error("Failed to resolve list for task operation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return nil, false
	}

	return parent, true
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}
