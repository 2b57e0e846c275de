package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/completion"
	"github.com/go-go-golems/angela/pkg/events"
	"github.com/go-go-golems/angela/pkg/models"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (n *notificationRecorder) Handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method != NotificationChatEvent || req.Params == nil {
		return
	}
	e := &events.Event{}
	if err := json.Unmarshal(*req.Params, e); err != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *notificationRecorder) types() []events.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	ret := []events.EventType{}
	for _, e := range n.events {
		ret = append(ret, e.Type)
	}
	return ret
}

func (n *notificationRecorder) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	conn   *jsonrpc2.Conn
	notes  *notificationRecorder
	orch   *orchestrator.Orchestrator
	ctx    context.Context
}

func newTestEnv(t *testing.T, client completion.Client) *testEnv {
	t.Helper()

	router, err := events.NewEventRouter()
	require.NoError(t, err)
	sink := events.NewWatermillSink(router.Publisher, events.TopicChat)

	store := chat.NewStore(nil, chat.WithListener(sink))
	orch := orchestrator.New(store, client,
		orchestrator.WithRegistry(models.NewDefaultRegistry()),
		orchestrator.WithPendingListener(sink),
	)

	server := httptest.NewServer(NewServer(orch, router).Handler())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	wsConn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		cancel()
		server.Close()
		t.Fatalf("failed to connect: %v", err)
	}

	notes := &notificationRecorder{}
	conn := jsonrpc2.NewConn(ctx, newWebSocketStream(wsConn), notes)

	t.Cleanup(func() {
		_ = conn.Close()
		<-conn.DisconnectNotify()
		server.Close()
		_ = router.Close()
		cancel()
	})

	return &testEnv{t: t, server: server, conn: conn, notes: notes, orch: orch, ctx: ctx}
}

func (e *testEnv) call(method string, params interface{}, result interface{}) error {
	return e.conn.Call(e.ctx, method, params, result)
}

func (e *testEnv) mustCall(method string, params interface{}, result interface{}) {
	e.t.Helper()
	require.NoError(e.t, e.call(method, params, result), method)
}

func requireRPCError(t *testing.T, err error, code int64) {
	t.Helper()
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "expected rpc error, got %v", err)
	assert.Equal(t, code, rpcErr.Code)
}

func echoClient() completion.Client {
	return completion.ClientFunc(func(_ context.Context, prompt string, _ string) (string, error) {
		return "echo: " + prompt, nil
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, echoClient())

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStateGet(t *testing.T) {
	env := newTestEnv(t, echoClient())

	var state StateResult
	env.mustCall(MethodStateGet, nil, &state)

	require.Len(t, state.Sessions, 1)
	require.NotNil(t, state.ActiveSessionID)
	assert.Equal(t, state.Sessions[0].ID, *state.ActiveSessionID)
	assert.Equal(t, chat.DefaultModel, state.ActiveModel)
	assert.False(t, state.Pending)
}

func TestChatSendRepliesAndNotifies(t *testing.T) {
	env := newTestEnv(t, echoClient())

	var session chat.Session
	env.mustCall(MethodChatSend, ChatSendParams{Text: "Hi"}, &session)

	assert.Equal(t, "Hi", session.Title)
	assert.Equal(t, []chat.Message{chat.NewUserMessage("Hi"), chat.NewAIMessage("echo: Hi")}, session.Messages)

	assert.Equal(t, []events.EventType{
		events.EventTypeMessageAppended,
		events.EventTypeSessionRenamed,
		events.EventTypePendingChanged,
		events.EventTypeMessageAppended,
		events.EventTypePendingChanged,
	}, env.notes.types())
}

func TestChatSendFailureUsesFallback(t *testing.T) {
	env := newTestEnv(t, completion.ClientFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("boom")
	}))

	var session chat.Session
	env.mustCall(MethodChatSend, ChatSendParams{Text: "Hi"}, &session)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, orchestrator.DefaultFallbackReply, session.Messages[1].Content)
}

func TestChatEdit(t *testing.T) {
	env := newTestEnv(t, echoClient())
	env.mustCall(MethodChatSend, ChatSendParams{Text: "Hi"}, nil)

	var session chat.Session
	env.mustCall(MethodChatEdit, ChatEditParams{Index: 0, Content: "Hey"}, &session)
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("Hey"),
		chat.NewAIMessage("echo: Hi"),
		chat.NewAIMessage("echo: Hey"),
	}, session.Messages)

	err := env.call(MethodChatEdit, ChatEditParams{Index: 1, Content: "nope"}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)
	err = env.call(MethodChatEdit, ChatEditParams{Index: 9, Content: "nope"}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)
}

func TestSessionMethods(t *testing.T) {
	env := newTestEnv(t, echoClient())
	env.mustCall(MethodChatSend, ChatSendParams{Text: "Go concurrency"}, nil)

	var created chat.Session
	env.mustCall(MethodSessionCreate, nil, &created)
	assert.Equal(t, chat.DefaultTitle, created.Title)

	var state StateResult
	env.mustCall(MethodStateGet, nil, &state)
	require.Len(t, state.Sessions, 2)
	assert.Equal(t, created.ID, *state.ActiveSessionID)
	first := state.Sessions[1].ID

	var found []*chat.Session
	env.mustCall(MethodSessionSearch, SessionSearchParams{Query: "CONCURRENCY"}, &found)
	require.Len(t, found, 1)
	assert.Equal(t, first, found[0].ID)

	env.mustCall(MethodSessionSelect, SessionParams{SessionID: first}, &state)
	assert.Equal(t, first, *state.ActiveSessionID)

	err := env.call(MethodSessionSelect, SessionParams{SessionID: "missing"}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)

	var exported SessionExportResult
	env.mustCall(MethodSessionExport, SessionExportParams{SessionID: first, Format: "md"}, &exported)
	assert.Equal(t, "md", exported.Format)
	assert.Contains(t, exported.Content, "# Go concurrency")
	assert.Contains(t, exported.Content, "echo: Go concurrency")

	err = env.call(MethodSessionExport, SessionExportParams{SessionID: first, Format: "pdf"}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)

	env.mustCall(MethodSessionReset, nil, &state)
	assert.Empty(t, state.Sessions[1].Messages)

	env.mustCall(MethodSessionDelete, SessionParams{SessionID: first}, &state)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, created.ID, *state.ActiveSessionID)

	err = env.call(MethodSessionDelete, SessionParams{SessionID: first}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)

	env.mustCall(MethodSessionDelete, SessionParams{SessionID: created.ID}, &state)
	require.Len(t, state.Sessions, 1)
	assert.NotEqual(t, created.ID, state.Sessions[0].ID)

	env.mustCall(MethodSessionCreate, nil, nil)
	env.mustCall(MethodSessionClearAll, nil, &state)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, state.Sessions[0].ID, *state.ActiveSessionID)
}

func TestModelMethods(t *testing.T) {
	env := newTestEnv(t, echoClient())

	var list []models.Model
	env.mustCall(MethodModelList, nil, &list)
	require.Len(t, list, 6)
	assert.Equal(t, "anthropic/claude-3.7-sonnet:beta", list[0].ID)

	env.notes.reset()
	var state StateResult
	env.mustCall(MethodModelSelect, ModelSelectParams{ModelID: "openai/gpt-4.1"}, &state)
	assert.Equal(t, "openai/gpt-4.1", state.ActiveModel)
	assert.Len(t, state.Sessions, 2)
	assert.Equal(t, []events.EventType{events.EventTypeModelChanged, events.EventTypeSessionCreated}, env.notes.types())

	err := env.call(MethodModelSelect, ModelSelectParams{ModelID: "acme/unknown"}, nil)
	requireRPCError(t, err, jsonrpc2.CodeInvalidParams)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t, echoClient())
	err := env.call("session.rename", nil, nil)
	requireRPCError(t, err, jsonrpc2.CodeMethodNotFound)
}
