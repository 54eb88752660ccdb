package a2a

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler completes every message with a single text artifact.
type echoHandler struct {
	store *TaskStore
}

func (h *echoHandler) HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error) {
	task := Task{
		ID:        NewID(),
		ContextID: req.Message.ContextID,
		Status:    TaskStatus{State: TaskStateCompleted, Timestamp: time.Now()},
		Artifacts: []Artifact{{
			ArtifactID: NewID(),
			Name:       "echo",
			Parts:      req.Message.Parts,
		}},
	}
	if err := h.store.Create(task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (h *echoHandler) HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error) {
	return h.store.Get(req.ID)
}

func (h *echoHandler) HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error) {
	if err := h.store.Update(req.ID, func(t *Task) {
		t.Status.State = TaskStateCanceled
	}); err != nil {
		return nil, err
	}
	return h.store.Get(req.ID)
}

func newTestServer(t *testing.T) (*httptest.Server, *echoHandler) {
	t.Helper()

	handler := &echoHandler{store: NewTaskStore()}
	srv := NewServer(AgentCard{
		Name:        "echo",
		Description: "echoes messages back",
		Version:     "0.1.0",
	}, handler)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, handler
}

func TestClientServerRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewHTTPClient()

	task, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{
		Message: Message{
			MessageID: NewID(),
			ContextID: "ctx-1",
			Role:      RoleUser,
			Parts:     []Part{TextPart("hello")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	require.Len(t, task.Artifacts[0].Parts, 1)
	assert.Equal(t, "hello", task.Artifacts[0].Parts[0].Text)

	got, err := client.GetTask(context.Background(), ts.URL, GetTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	canceled, err := client.CancelTask(context.Background(), ts.URL, CancelTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCanceled, canceled.Status.State)
}

func TestClientGetUnknownTaskReturnsRPCError(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewHTTPClient()

	_, err := client.GetTask(context.Background(), ts.URL, GetTaskRequest{ID: "missing"})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, MethodGetTask, rpcErr.Method)
	assert.Equal(t, ErrCodeInternal, rpcErr.Code)
}

func TestClientUnknownMethodReturnsRPCError(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewHTTPClient()

	err := client.call(context.Background(), ts.URL, "tasks/nope", struct{}{}, nil)
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, ErrCodeMethodNotFound, rpcErr.Code)
}

func TestClientHTTPFailureReturnsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewHTTPClient()
	_, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.Status)
}

func TestClientConnectionRefusedReturnsTransportError(t *testing.T) {
	client := NewHTTPClient(WithTimeout(time.Second))

	_, err := client.SendMessage(context.Background(), "http://127.0.0.1:1", SendMessageRequest{})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.Status)
}

func TestClientContextCancellationKeepsIdentity(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context; otherwise the
		// handler never unblocks and ts.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewHTTPClient()
	_, err := client.SendMessage(ctx, ts.URL, SendMessageRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDiscoverAgent(t *testing.T) {
	ts, _ := newTestServer(t)
	client := NewHTTPClient()

	card, err := client.DiscoverAgent(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "echo", card.Name)
}

func TestTaskStoreGetReturnsDeepCopy(t *testing.T) {
	store := NewTaskStore()
	require.NoError(t, store.Create(Task{
		ID:     "t1",
		Status: TaskStatus{State: TaskStateWorking},
		Artifacts: []Artifact{{
			ArtifactID: "a1",
			Parts:      []Part{TextPart("original")},
		}},
	}))

	got, err := store.Get("t1")
	require.NoError(t, err)
	got.Artifacts[0].Parts[0].Text = "mutated"
	got.Status.State = TaskStateFailed

	again, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Artifacts[0].Parts[0].Text)
	assert.Equal(t, TaskStateWorking, again.Status.State)
}

func TestTaskStoreCreateDuplicate(t *testing.T) {
	store := NewTaskStore()
	require.NoError(t, store.Create(Task{ID: "t1"}))
	require.Error(t, store.Create(Task{ID: "t1"}))
}

func TestTaskStoreUpdateMutatesInPlace(t *testing.T) {
	store := NewTaskStore()
	require.NoError(t, store.Create(Task{ID: "t1", Status: TaskStatus{State: TaskStateSubmitted}}))

	require.NoError(t, store.Update("t1", func(task *Task) {
		task.Status.State = TaskStateWorking
	}))

	got, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, TaskStateWorking, got.Status.State)

	require.Error(t, store.Update("missing", func(*Task) {}))
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.False(t, seen[id], fmt.Sprintf("duplicate id %s", id))
		seen[id] = true
	}
}

func TestServerStartReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(AgentCard{Name: "echo"}, &echoHandler{store: NewTaskStore()})
	err = srv.Start(context.Background(), ln.Addr().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestServerStartAndStop(t *testing.T) {
	srv := NewServer(AgentCard{Name: "echo"}, &echoHandler{store: NewTaskStore()})
	require.NoError(t, srv.Start(context.Background(), "127.0.0.1:0"))
	require.NoError(t, srv.Stop(context.Background()))
}

// failingHandler rejects every send with a fixed error.
type failingHandler struct {
	echoHandler
	err error
}

func (h *failingHandler) HandleSendMessage(context.Context, SendMessageRequest) (*Task, error) {
	return nil, h.err
}

func TestErrorClassifierKindRoundTrip(t *testing.T) {
	handler := &failingHandler{err: errors.New("bad input")}
	srv := NewServer(AgentCard{Name: "echo"}, handler,
		WithErrorClassifier(func(error) string { return "validation_error" }))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewHTTPClient()
	_, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "validation_error", rpcErr.ErrorKind())
}

func TestErrorWithoutClassifierCarriesNoKind(t *testing.T) {
	handler := &failingHandler{err: errors.New("bad input")}
	srv := NewServer(AgentCard{Name: "echo"}, handler)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewHTTPClient()
	_, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Empty(t, rpcErr.ErrorKind())
}
