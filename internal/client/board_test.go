package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"task_webapp/internal/db/dbtest"
	"task_webapp/internal/domain"
	httpserver "task_webapp/internal/http"
	"task_webapp/internal/repository"
	"task_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer runs the real routes on SQLite. Requests matching fail get a 500.
type testServer struct {
	*httptest.Server
	fail atomic.Value // func(*http.Request) bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := repository.NewTaskRepository(dbtest.Open(t))
	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{Tasks: service.NewTaskService(repo, nil), DB: repo})

	ts := &testServer{}
	ts.failWhen(func(*http.Request) bool { return false })
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ts.fail.Load().(func(*http.Request) bool)(req) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"Server error"}`))
			return
		}
		r.ServeHTTP(w, req)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) failWhen(fn func(*http.Request) bool) {
	ts.fail.Store(fn)
}

func method(m string) func(*http.Request) bool {
	return func(r *http.Request) bool { return r.Method == m }
}

func seed(t *testing.T, api *API, titles ...string) []domain.Task {
	t.Helper()
	var out []domain.Task
	for _, title := range titles {
		task, err := api.Create(context.Background(), CreateRequest{Title: title})
		require.NoError(t, err)
		out = append(out, *task)
	}
	return out
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestBoard_Load(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	seed(t, api, "a", "b")

	var changes int32
	board := NewBoard(api, WithOnChange(func(State) { atomic.AddInt32(&changes, 1) }))
	require.NoError(t, board.Load(context.Background()))

	s := board.Snapshot()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Len(t, s.Tasks, 2)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&changes), int32(2))

	t.Run("failure keeps the list", func(t *testing.T) {
		ts.failWhen(method(http.MethodGet))
		defer ts.failWhen(func(*http.Request) bool { return false })

		require.Error(t, board.Load(context.Background()))
		s := board.Snapshot()
		assert.Equal(t, MsgLoadFailed, s.Error)
		assert.False(t, s.Loading)
		assert.Len(t, s.Tasks, 2)
	})
}

func TestBoard_Create(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	seed(t, api, "existing")

	loc := time.FixedZone("UTC+2", 2*60*60)
	board := NewBoard(api, WithLocation(loc))
	require.NoError(t, board.Load(context.Background()))

	t.Run("blank title sends nothing", func(t *testing.T) {
		board.SetDraft(Draft{Title: "   "})
		require.NoError(t, board.Create(context.Background()))

		tasks, err := api.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
		assert.Len(t, board.Snapshot().Tasks, 1)
	})

	t.Run("invalid due date rejected locally", func(t *testing.T) {
		board.SetDraft(Draft{Title: "x", DueDate: "tomorrow"})
		assert.ErrorIs(t, board.Create(context.Background()), ErrInvalidDueDate)
		assert.Equal(t, MsgInvalidDraftDue, board.Snapshot().Error)
		assert.Equal(t, "tomorrow", board.Snapshot().Draft.DueDate)
	})

	t.Run("success prepends and resets draft", func(t *testing.T) {
		board.SetDraft(Draft{Title: " New ", Description: "  ", DueDate: "2025-03-10T09:30"})
		require.NoError(t, board.Create(context.Background()))

		s := board.Snapshot()
		assert.Empty(t, s.Error)
		assert.False(t, s.Submitting)
		assert.Equal(t, Draft{}, s.Draft)
		require.Len(t, s.Tasks, 2)
		assert.Equal(t, "New", s.Tasks[0].Title)
		assert.Nil(t, s.Tasks[0].Description)
		require.NotNil(t, s.Tasks[0].DueDate)
		assert.True(t, time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC).Equal(*s.Tasks[0].DueDate))
	})

	t.Run("failure keeps list and draft", func(t *testing.T) {
		ts.failWhen(method(http.MethodPost))
		defer ts.failWhen(func(*http.Request) bool { return false })

		board.SetDraft(Draft{Title: "doomed"})
		require.Error(t, board.Create(context.Background()))

		s := board.Snapshot()
		assert.Equal(t, "Server error", s.Error)
		assert.Len(t, s.Tasks, 2)
		assert.Equal(t, "doomed", s.Draft.Title)
	})
}

func TestBoard_ToggleRollback(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	created := seed(t, api, "task")

	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))

	ts.failWhen(method(http.MethodPatch))
	require.Error(t, board.Toggle(context.Background(), created[0].ID))

	s := board.Snapshot()
	require.Len(t, s.Tasks, 1)
	assert.False(t, s.Tasks[0].Completed)
	assert.Equal(t, MsgToggleFailed, s.Error)
}

func TestBoard_ToggleSuccess(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	created := seed(t, api, "task")

	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))
	require.NoError(t, board.Toggle(context.Background(), created[0].ID))

	assert.True(t, board.Snapshot().Tasks[0].Completed)
	done, total := board.Snapshot().CompletedCount()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)

	remote, err := api.List(context.Background())
	require.NoError(t, err)
	assert.True(t, remote[0].Completed)
}

func TestBoard_DeleteRollback(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	seed(t, api, "first", "second", "third")

	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))
	before := board.Snapshot().Tasks
	require.Len(t, before, 3)

	ts.failWhen(method(http.MethodDelete))
	require.Error(t, board.Delete(context.Background(), before[1].ID))

	s := board.Snapshot()
	assert.Equal(t, titles(before), titles(s.Tasks))
	assert.Equal(t, MsgDeleteFailed, s.Error)
}

func TestBoard_DeleteSuccess(t *testing.T) {
	ts := newTestServer(t)
	api := NewAPI(ts.URL, nil)
	created := seed(t, api, "keep", "drop")

	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))
	require.NoError(t, board.Delete(context.Background(), created[1].ID))

	assert.Equal(t, []string{"keep"}, titles(board.Snapshot().Tasks))

	err := api.Delete(context.Background(), created[1].ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Task not found", apiErr.Message)
}

// gatedAPI holds each call until the test releases it with a result.
type gatedAPI struct {
	mu    sync.Mutex
	calls []chan error
	ready chan struct{}
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{ready: make(chan struct{}, 16)}
}

func (g *gatedAPI) wait(ctx context.Context) error {
	ch := make(chan error, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.mu.Unlock()
	g.ready <- struct{}{}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedAPI) release(i int, err error) {
	g.mu.Lock()
	ch := g.calls[i]
	g.mu.Unlock()
	ch <- err
}

func (g *gatedAPI) List(context.Context) ([]domain.Task, error) {
	return []domain.Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}}, nil
}

func (g *gatedAPI) Create(context.Context, CreateRequest) (*domain.Task, error) {
	return nil, &APIError{Status: http.StatusInternalServerError}
}

func (g *gatedAPI) SetCompleted(ctx context.Context, id int64, completed bool) (*domain.Task, error) {
	return nil, g.wait(ctx)
}

func (g *gatedAPI) Delete(ctx context.Context, id int64) error {
	return g.wait(ctx)
}

func TestBoard_RapidTogglesRollBackIndependently(t *testing.T) {
	api := newGatedAPI()
	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))

	errs := make(chan error, 2)
	go func() { errs <- board.Toggle(context.Background(), 1) }() // false -> true
	<-api.ready
	go func() { errs <- board.Toggle(context.Background(), 1) }() // true -> false
	<-api.ready

	assert.False(t, board.Snapshot().Tasks[0].Completed)

	api.release(0, nil)
	api.release(1, &APIError{Status: http.StatusInternalServerError})
	<-errs
	<-errs

	// the failed toggle restores the value it saw, not the original
	s := board.Snapshot()
	assert.True(t, s.Tasks[0].Completed)
	assert.Equal(t, MsgToggleFailed, s.Error)
}

func TestBoard_ConcurrentDeletes(t *testing.T) {
	api := newGatedAPI()
	board := NewBoard(api)
	require.NoError(t, board.Load(context.Background()))

	errs := make(chan error, 2)
	go func() { errs <- board.Delete(context.Background(), 2) }()
	<-api.ready
	go func() { errs <- board.Delete(context.Background(), 3) }()
	<-api.ready

	assert.Equal(t, []string{"a"}, titles(board.Snapshot().Tasks))

	// 3 succeeds, 2 fails: only 2 comes back
	api.release(1, nil)
	api.release(0, &APIError{Status: http.StatusInternalServerError})
	<-errs
	<-errs

	assert.Equal(t, []string{"a", "b"}, titles(board.Snapshot().Tasks))
}

func TestBoard_UnknownIDIsNoop(t *testing.T) {
	board := NewBoard(newGatedAPI())
	require.NoError(t, board.Load(context.Background()))

	assert.NoError(t, board.Toggle(context.Background(), 42))
	assert.NoError(t, board.Delete(context.Background(), 42))
	assert.Len(t, board.Snapshot().Tasks, 3)
}

func TestBoard_ApplyEvent(t *testing.T) {
	board := NewBoard(newGatedAPI())
	require.NoError(t, board.Load(context.Background()))

	board.ApplyEvent(domain.TaskEvent{Type: domain.EventTaskCreated, ID: 4, Task: &domain.Task{ID: 4, Title: "d"}})
	board.ApplyEvent(domain.TaskEvent{Type: domain.EventTaskCreated, ID: 4, Task: &domain.Task{ID: 4, Title: "d"}})
	board.ApplyEvent(domain.TaskEvent{Type: domain.EventTaskUpdated, ID: 1, Task: &domain.Task{ID: 1, Title: "a", Completed: true}})
	board.ApplyEvent(domain.TaskEvent{Type: domain.EventTaskDeleted, ID: 2})

	s := board.Snapshot()
	assert.Equal(t, []string{"d", "a", "c"}, titles(s.Tasks))
	assert.True(t, s.Tasks[1].Completed)
}

func TestParseDueDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)

	got, err := ParseDueDate("2025-01-31T22:15", loc)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-02-01T03:15:00Z", *got)

	got, err = ParseDueDate("  ", loc)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDueDate("31/01/2025", loc)
	assert.ErrorIs(t, err, ErrInvalidDueDate)
}

func TestAPI_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/1") {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Title is required"})
	}))
	defer srv.Close()
	api := NewAPI(srv.URL+"/", nil)

	_, err := api.Create(context.Background(), CreateRequest{})
	assert.Equal(t, "Title is required", ServerMessage(err, MsgCreateFailed))

	err = api.Delete(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, MsgDeleteFailed, ServerMessage(err, MsgDeleteFailed))
}
