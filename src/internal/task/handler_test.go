package task

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/list"
	"tasklist-svc/src/internal/middleware"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeListRepo struct {
	lists map[string]*list.List
}

func newFakeListRepo() *fakeListRepo {
	return &fakeListRepo{lists: make(map[string]*list.List)}
}

func (r *fakeListRepo) FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*list.List, error) {
	found := []*list.List{}
	for _, l := range r.lists {
		if l.UserID == userID {
			found = append(found, l)
		}
	}
	return found, nil
}

func (r *fakeListRepo) FindByIDAndUser(ctx context.Context, id string, userID primitive.ObjectID) (*list.List, error) {
	l, exists := r.lists[id]
	if !exists || l.UserID != userID {
		return nil, models.ErrListNotFound
	}
	return l, nil
}

func (r *fakeListRepo) Create(ctx context.Context, l *list.List) error {
	l.ID = primitive.NewObjectID()
	r.lists[l.ID.Hex()] = l
	return nil
}

func (r *fakeListRepo) Update(ctx context.Context, id string, userID primitive.ObjectID, title string) (*list.List, error) {
	l, exists := r.lists[id]
	if !exists || l.UserID != userID {
		return nil, models.ErrListNotFound
	}
	l.Title = title
	return l, nil
}

func (r *fakeListRepo) Delete(ctx context.Context, id string, userID primitive.ObjectID) error {
	l, exists := r.lists[id]
	if !exists || l.UserID != userID {
		return models.ErrListNotFound
	}
	delete(r.lists, id)
	return nil
}

type fakeTaskRepo struct {
	tasks map[string]*Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*Task)}
}

func (r *fakeTaskRepo) FindAllByList(ctx context.Context, listID primitive.ObjectID) ([]*Task, error) {
	found := []*Task{}
	for _, task := range r.tasks {
		if task.ListID == listID {
			found = append(found, task)
		}
	}
	return found, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *Task) error {
	task.ID = primitive.NewObjectID()
	r.tasks[task.ID.Hex()] = task
	return nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, id string, listID primitive.ObjectID, update bson.M) (*Task, error) {
	task, exists := r.tasks[id]
	if !exists || task.ListID != listID {
		return nil, models.ErrTaskNotFound
	}
	if title, ok := update["title"].(string); ok {
		task.Title = title
	}
	if completed, ok := update["completed"].(bool); ok {
		task.Completed = completed
	}
	return task, nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id string, listID primitive.ObjectID) (*Task, error) {
	task, exists := r.tasks[id]
	if !exists || task.ListID != listID {
		return nil, models.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return task, nil
}

type testEnv struct {
	router *gin.Engine
	lists  *fakeListRepo
	tasks  *fakeTaskRepo
	owner  *user.User
	list   *list.List
}

// One authenticated user with one list of their own.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lists := newFakeListRepo()
	tasks := newFakeTaskRepo()
	owner := &user.User{ID: primitive.NewObjectID()}

	owned := &list.List{Title: "owned", UserID: owner.ID}
	lists.Create(context.Background(), owned)

	cfg := &config.Configuration{App: config.Application{Timeout: 5}}
	h := NewHandler(cfg, tasks, lists)

	r := gin.New()
	group := r.Group("/lists/:listId/tasks", func(c *gin.Context) {
		c.Set(middleware.ContextUser, owner)
	})
	group.GET("", h.GetTasks)
	group.POST("", h.CreateTask)
	group.PATCH("/:taskId", h.UpdateTask)
	group.DELETE("/:taskId", h.DeleteTask)

	return &testEnv{router: r, lists: lists, tasks: tasks, owner: owner, list: owned}
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetTasks(t *testing.T) {
	env := setupEnv(t)
	base := "/lists/" + env.list.ID.Hex() + "/tasks"

	w := doJSON(env.router, http.MethodPost, base, gin.H{"title": "buy milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var created Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid create response: %v", err)
	}
	if created.Title != "buy milk" || created.ListID != env.list.ID || created.Completed {
		t.Errorf("created task = %+v, want incomplete buy-milk in list %s", created, env.list.ID.Hex())
	}

	w = doJSON(env.router, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var got []Task
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid get response: %v", err)
	}
	if len(got) != 1 || got[0].ID != created.ID {
		t.Errorf("tasks = %+v, want only the created one", got)
	}
}

// Every task route resolves the parent list against the authenticated user
// first; a foreign or missing list yields 404 before any task is touched.
func TestTaskRoutes_ListScope(t *testing.T) {
	env := setupEnv(t)

	foreign := &list.List{Title: "someone else's", UserID: primitive.NewObjectID()}
	env.lists.Create(context.Background(), foreign)
	hidden := &Task{Title: "secret", ListID: foreign.ID}
	env.tasks.Create(context.Background(), hidden)

	for _, base := range []string{
		"/lists/" + foreign.ID.Hex() + "/tasks",
		"/lists/" + primitive.NewObjectID().Hex() + "/tasks",
	} {
		for _, tc := range []struct {
			method string
			path   string
			body   any
		}{
			{http.MethodGet, base, nil},
			{http.MethodPost, base, gin.H{"title": "x"}},
			{http.MethodPatch, base + "/" + hidden.ID.Hex(), gin.H{"completed": true}},
			{http.MethodDelete, base + "/" + hidden.ID.Hex(), nil},
		} {
			w := doJSON(env.router, tc.method, tc.path, tc.body)
			if w.Code != http.StatusNotFound {
				t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, w.Code)
			}
		}
	}

	if _, exists := env.tasks.tasks[hidden.ID.Hex()]; !exists {
		t.Error("foreign task was deleted through another user's request")
	}
}

func TestUpdateTask(t *testing.T) {
	env := setupEnv(t)
	task := &Task{Title: "before", ListID: env.list.ID}
	env.tasks.Create(context.Background(), task)

	base := "/lists/" + env.list.ID.Hex() + "/tasks/"

	w := doJSON(env.router, http.MethodPatch, base+task.ID.Hex(), gin.H{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var updated Task
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !updated.Completed || updated.Title != "before" {
		t.Errorf("task after completion-only patch = %+v", updated)
	}

	t.Run("empty patch rejected", func(t *testing.T) {
		if w := doJSON(env.router, http.MethodPatch, base+task.ID.Hex(), gin.H{}); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		w := doJSON(env.router, http.MethodPatch, base+primitive.NewObjectID().Hex(), gin.H{"completed": true})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	env := setupEnv(t)
	task := &Task{Title: "done with this", ListID: env.list.ID}
	env.tasks.Create(context.Background(), task)

	base := "/lists/" + env.list.ID.Hex() + "/tasks/"

	w := doJSON(env.router, http.MethodDelete, base+task.ID.Hex(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if _, exists := env.tasks.tasks[task.ID.Hex()]; exists {
		t.Error("task still present after delete")
	}

	if w := doJSON(env.router, http.MethodDelete, base+task.ID.Hex(), nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}
