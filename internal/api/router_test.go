package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/task-api/internal/core/domain"
	"github.com/taskhub/task-api/internal/core/ports"
	"github.com/taskhub/task-api/internal/core/service"
)

// --- In-memory repositories for the end-to-end tests ---

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	r.nextID++
	clone := *user
	clone.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[user.Email] = &clone
	out := clone
	return &out, nil
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

type memTaskRepo struct {
	mu     sync.Mutex
	tasks  map[string]*domain.Task
	nextID int
}

func (r *memTaskRepo) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	clone := *t
	clone.ID = fmt.Sprintf("task-%d", r.nextID)
	r.tasks[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *memTaskRepo) FindByID(_ context.Context, id, ownerID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || (ownerID != "" && t.OwnerID != ownerID) {
		return nil, domain.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memTaskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	clone := *t
	r.tasks[t.ID] = &clone
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || (ownerID != "" && t.OwnerID != ownerID) {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) List(_ context.Context, filter ports.ListTasksFilter) ([]*domain.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Task
	for _, t := range r.tasks {
		if filter.OwnerID != "" && t.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) {
			continue
		}
		clone := *t
		matched = append(matched, &clone)
	}

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type memActivityRepo struct {
	mu      sync.Mutex
	records []*domain.ActivityRecord
}

func (r *memActivityRepo) Insert(_ context.Context, rec *domain.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.records = append(r.records, &clone)
	return nil
}

func (r *memActivityRepo) ListByTask(_ context.Context, taskID string) ([]*domain.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ActivityRecord
	for _, rec := range r.records {
		if rec.TaskID == taskID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

// syncDispatcher records activity inline so the trail is visible to the
// request that caused it.
type syncDispatcher struct {
	svc ports.ActivityService
}

func (d syncDispatcher) Enqueue(in ports.ActivityInput) {
	_ = d.svc.Record(context.Background(), in)
}

// The router is built once for the whole package: the prometheus middleware
// registers collectors in the default registry and a second registration
// would panic.
var (
	routerOnce sync.Once
	testRouter *echo.Echo
)

func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	routerOnce.Do(func() {
		tokens, err := service.NewTokenService("e2e-test-secret", 0)
		if err != nil {
			t.Fatalf("NewTokenService: %v", err)
		}

		userRepo := &memUserRepo{users: map[string]*domain.User{}}
		taskRepo := &memTaskRepo{tasks: map[string]*domain.Task{}}
		activityRepo := &memActivityRepo{}

		authService := service.NewAuthService(userRepo, service.NewBcryptHasher(bcrypt.MinCost), tokens, nil, zerolog.Nop())
		activityService := service.NewActivityService(activityRepo, zerolog.Nop())
		taskService := service.NewTaskService(taskRepo, syncDispatcher{svc: activityService}, zerolog.Nop())

		if err := authService.EnsureAdmin(context.Background(), "admin@example.com", "AdminPass1"); err != nil {
			t.Fatalf("EnsureAdmin: %v", err)
		}

		testRouter = NewRouter(Dependencies{
			Tokens:       tokens,
			AuthService:  authService,
			TaskService:  taskService,
			ActivityRepo: activityRepo,
			Log:          zerolog.Nop(),
		})
	})
	return testRouter
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Error.Code == "" {
		t.Fatalf("response is not the error envelope: %s", rec.Body.String())
	}
	return envelope.Error.Code
}

// registerAndLogin creates a fresh user and returns its token and id.
func registerAndLogin(t *testing.T, e *echo.Echo, email, password string) (string, string) {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register", "",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var reg struct {
		UserID string `json:"user_id"`
	}
	decodeBody(t, rec, &reg)

	rec = doJSON(t, e, http.MethodPost, "/v1/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)
	return login.Token, reg.UserID
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	e := testServer(t)

	token, userID := registerAndLogin(t, e, "flow@example.com", "Secret123")
	if token == "" || userID == "" {
		t.Fatalf("expected token and user id, got %q / %q", token, userID)
	}

	// Same email again conflicts.
	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register", "",
		`{"email":"flow@example.com","password":"Other4567"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeConflict {
		t.Fatalf("expected %q, got %q", CodeConflict, code)
	}

	// Wrong password and unknown account produce the same envelope.
	wrong := doJSON(t, e, http.MethodPost, "/v1/auth/login", "",
		`{"email":"flow@example.com","password":"WrongPass"}`)
	unknown := doJSON(t, e, http.MethodPost, "/v1/auth/login", "",
		`{"email":"ghost@example.com","password":"Secret123"}`)
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, unknown.Code)
	}
	if errorCode(t, wrong) != CodeAuthFailed || errorCode(t, unknown) != CodeAuthFailed {
		t.Fatalf("login failures must be indistinguishable")
	}
}

func TestAPI_RegisterCannotPickPrivilegedRole(t *testing.T) {
	e := testServer(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register", "",
		`{"email":"mallory@example.com","password":"Sneaky123","role":"admin"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for role=admin, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAPI_TasksRequireToken(t *testing.T) {
	e := testServer(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/tasks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeInvalidToken {
		t.Fatalf("expected %q, got %q", CodeInvalidToken, code)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/tasks", "garbage-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a garbage token, got %d", rec.Code)
	}
}

func TestAPI_TaskLifecycle(t *testing.T) {
	e := testServer(t)
	token, _ := registerAndLogin(t, e, "lifecycle@example.com", "Secret123")

	// Create.
	rec := doJSON(t, e, http.MethodPost, "/v1/tasks", token,
		`{"title":"ship the release","description":"cut and tag"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var task domain.Task
	decodeBody(t, rec, &task)
	if task.Status != domain.StatusPending {
		t.Fatalf("expected default status pending, got %q", task.Status)
	}

	// Read it back.
	rec = doJSON(t, e, http.MethodGet, "/v1/tasks/"+task.ID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	// Update the status.
	rec = doJSON(t, e, http.MethodPut, "/v1/tasks/"+task.ID, token,
		`{"status":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var updated domain.Task
	decodeBody(t, rec, &updated)
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %q", updated.Status)
	}
	if updated.Title != "ship the release" {
		t.Fatalf("title must survive a partial update, got %q", updated.Title)
	}

	// The trail shows both mutations.
	rec = doJSON(t, e, http.MethodGet, "/v1/tasks/"+task.ID+"/activity", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activity: expected 200, got %d", rec.Code)
	}
	var trail struct {
		Data []*domain.ActivityRecord `json:"data"`
	}
	decodeBody(t, rec, &trail)
	if len(trail.Data) != 2 {
		t.Fatalf("expected 2 activity records, got %d", len(trail.Data))
	}
	if trail.Data[0].Action != "created" || trail.Data[1].Action != "updated" {
		t.Fatalf("unexpected trail: %+v, %+v", trail.Data[0], trail.Data[1])
	}

	// Delete, then the task is gone.
	rec = doJSON(t, e, http.MethodDelete, "/v1/tasks/"+task.ID, token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/tasks/"+task.ID, token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeNotFound {
		t.Fatalf("expected %q, got %q", CodeNotFound, code)
	}
}

func TestAPI_TaskValidation(t *testing.T) {
	e := testServer(t)
	token, _ := registerAndLogin(t, e, "validation@example.com", "Secret123")

	rec := doJSON(t, e, http.MethodPost, "/v1/tasks", token, `{"description":"no title"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeValidation {
		t.Fatalf("expected %q, got %q", CodeValidation, code)
	}
}

func TestAPI_OwnershipIsolation(t *testing.T) {
	e := testServer(t)
	ownerToken, _ := registerAndLogin(t, e, "owner@example.com", "Secret123")
	otherToken, _ := registerAndLogin(t, e, "other@example.com", "Secret123")

	rec := doJSON(t, e, http.MethodPost, "/v1/tasks", ownerToken, `{"title":"mine"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	var task domain.Task
	decodeBody(t, rec, &task)

	// A foreign task reads as missing, never as forbidden.
	for _, attempt := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/tasks/" + task.ID},
		{http.MethodPut, "/v1/tasks/" + task.ID},
		{http.MethodDelete, "/v1/tasks/" + task.ID},
		{http.MethodGet, "/v1/tasks/" + task.ID + "/activity"},
	} {
		body := ""
		if attempt.method == http.MethodPut {
			body = `{"title":"hijacked"}`
		}
		rec := doJSON(t, e, attempt.method, attempt.path, otherToken, body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404 for foreign task, got %d", attempt.method, attempt.path, rec.Code)
		}
	}

	// The other user's list does not include it either.
	rec = doJSON(t, e, http.MethodGet, "/v1/tasks?search=mine", otherToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Data []*domain.Task `json:"data"`
	}
	decodeBody(t, rec, &list)
	if len(list.Data) != 0 {
		t.Fatalf("foreign task leaked into the list: %+v", list.Data)
	}
}

func TestAPI_AdminGate(t *testing.T) {
	e := testServer(t)
	userToken, _ := registerAndLogin(t, e, "plain@example.com", "Secret123")

	// A regular user is rejected with 403.
	rec := doJSON(t, e, http.MethodGet, "/v1/admin/users", userToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a regular user, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeForbidden {
		t.Fatalf("expected %q, got %q", CodeForbidden, code)
	}

	// The seeded admin gets through.
	rec = doJSON(t, e, http.MethodPost, "/v1/auth/login", "",
		`{"email":"admin@example.com","password":"AdminPass1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)

	rec = doJSON(t, e, http.MethodGet, "/v1/admin/users", login.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list users: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var users struct {
		Data []*domain.User `json:"data"`
	}
	decodeBody(t, rec, &users)
	if len(users.Data) == 0 {
		t.Fatalf("expected at least the seeded admin in the user list")
	}
	// Password material never crosses the wire.
	if strings.Contains(rec.Body.String(), "$2") {
		t.Fatalf("response leaks password hashes: %s", rec.Body.String())
	}
}

func TestAPI_ListPagination(t *testing.T) {
	e := testServer(t)
	token, _ := registerAndLogin(t, e, "pages@example.com", "Secret123")

	for i := 0; i < 5; i++ {
		rec := doJSON(t, e, http.MethodPost, "/v1/tasks", token,
			fmt.Sprintf(`{"title":"paged %d"}`, i))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, e, http.MethodGet, "/v1/tasks?page=2&limit=2&search=paged", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data       []*domain.Task `json:"data"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	decodeBody(t, rec, &resp)
	if resp.Pagination.Total != 5 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("expected 5 tasks over 3 pages, got %d over %d", resp.Pagination.Total, resp.Pagination.TotalPages)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 tasks on page 2, got %d", len(resp.Data))
	}
}

func TestAPI_Liveness(t *testing.T) {
	e := testServer(t)

	rec := doJSON(t, e, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
