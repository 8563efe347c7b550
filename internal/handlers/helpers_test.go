package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/assignhub/apiserver/internal/services"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role string) ([]types.User, error) {
	var users []types.User
	for _, user := range r.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

type fakeAssignmentRepo struct {
	nextID      int
	clock       time.Time
	assignments map[int]types.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		nextID:      1,
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		assignments: map[int]types.Assignment{},
	}
}

func (r *fakeAssignmentRepo) Get(_ context.Context, id int) (types.Assignment, error) {
	if assignment, ok := r.assignments[id]; ok {
		return assignment, nil
	}
	return types.Assignment{}, store.ErrNotFound
}

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment types.Assignment) (types.Assignment, error) {
	assignment.ID = r.nextID
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	assignment.CreatedAt = r.clock
	assignment.UpdatedAt = r.clock
	r.assignments[assignment.ID] = assignment
	return assignment, nil
}

func (r *fakeAssignmentRepo) ListByAdmin(_ context.Context, adminID int) ([]types.Assignment, error) {
	var assignments []types.Assignment
	for _, assignment := range r.assignments {
		if assignment.AdminID == adminID {
			assignments = append(assignments, assignment)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		if !assignments[i].CreatedAt.Equal(assignments[j].CreatedAt) {
			return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
		}
		return assignments[i].ID > assignments[j].ID
	})
	return assignments, nil
}

func (r *fakeAssignmentRepo) UpdateStatus(_ context.Context, id int, status types.Status) (bool, error) {
	assignment, ok := r.assignments[id]
	if !ok || assignment.Status != types.StatusPending {
		return false, nil
	}
	assignment.Status = status
	r.clock = r.clock.Add(time.Minute)
	assignment.UpdatedAt = r.clock
	r.assignments[id] = assignment
	return true, nil
}

func (r *fakeAssignmentRepo) SetAttachment(_ context.Context, id int, key string) error {
	assignment, ok := r.assignments[id]
	if !ok {
		return store.ErrNotFound
	}
	assignment.AttachmentKey = key
	r.assignments[id] = assignment
	return nil
}

type fakeObjectStorage struct {
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (f *fakeObjectStorage) EnsureBucket(_ context.Context) error { return nil }

func (f *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "test-bucket" }

type testEnv struct {
	router            *chi.Mux
	users             *fakeUserRepo
	assignments       *fakeAssignmentRepo
	assignmentService *services.AssignmentService
}

// newTestEnv wires the API exactly like the server does, over
// in-memory repositories.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	assignments := newFakeAssignmentRepo()

	userService := services.NewUserService(users)
	assignmentService := services.NewAssignmentService(assignments, users)

	authHandler := NewAuthHandler(userService, testSecret, 0)
	assignmentHandler := NewAssignmentHandler(assignmentService, userService)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, authHandler, assignmentHandler)
	})
	router.Route("/api/admin", func(r chi.Router) {
		AdminRouter(r, authHandler, assignmentHandler)
	})

	return &testEnv{
		router:            router,
		users:             users,
		assignments:       assignments,
		assignmentService: assignmentService,
	}
}

// do performs a JSON request against the test router. An empty token
// leaves the Authorization header unset.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func (e *testEnv) register(t *testing.T, group, username, role string) {
	t.Helper()

	body := map[string]string{"username": username, "password": "secret123"}
	if role != "" {
		body["role"] = role
	}
	resp := e.do(t, http.MethodPost, fmt.Sprintf("/api/%s/register", group), "", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func (e *testEnv) login(t *testing.T, group, username string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, fmt.Sprintf("/api/%s/login", group), "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

// doUpload performs a multipart file upload against the test router.
func (e *testEnv) doUpload(t *testing.T, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), v))
}
