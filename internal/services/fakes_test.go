package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/assignhub/apiserver/internal/events"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role string) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
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
	mu          sync.Mutex
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
	r.mu.Lock()
	defer r.mu.Unlock()
	if assignment, ok := r.assignments[id]; ok {
		return assignment, nil
	}
	return types.Assignment{}, store.ErrNotFound
}

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment types.Assignment) (types.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment.ID = r.nextID
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	assignment.CreatedAt = r.clock
	assignment.UpdatedAt = r.clock
	r.assignments[assignment.ID] = assignment
	return assignment, nil
}

func (r *fakeAssignmentRepo) ListByAdmin(_ context.Context, adminID int) ([]types.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return store.ErrNotFound
	}
	assignment.AttachmentKey = key
	r.assignments[id] = assignment
	return nil
}

type fakeObjectStorage struct {
	mu      sync.Mutex
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "test-bucket" }

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, _ events.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.published...)
}
