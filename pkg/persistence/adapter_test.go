package persistence

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	*MemoryBackend
	writeErr error
	readErr  error
}

func (f *failingBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.MemoryBackend.Read(ctx, key)
}

func (f *failingBackend) Write(ctx context.Context, key string, value []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryBackend.Write(ctx, key, value)
}

func sampleState() *chat.State {
	return &chat.State{
		Sessions: []*chat.Session{
			chat.NewSession(chat.WithSessionID("b"), chat.WithTitle("Second"), chat.WithMessages(
				chat.NewUserMessage("Second"),
				chat.NewAIMessage("reply"),
			)),
			chat.NewSession(chat.WithSessionID("a")),
		},
		ActiveSessionID: "b",
		ActiveModel:     "openai/gpt-4.1",
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	previous := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = previous })
	return buf
}

func TestAdapterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileJSON, err := NewFileBackend(filepath.Join(dir, "json"), "json")
	require.NoError(t, err)
	fileYAML, err := NewFileBackend(filepath.Join(dir, "yaml"), "yaml")
	require.NoError(t, err)
	sqlite := newSQLiteBackendForTest(t, filepath.Join(dir, "kv.db"))
	defer func() { _ = sqlite.Close() }()

	cases := []struct {
		name    string
		backend Backend
		codec   Codec
	}{
		{"memory json", NewMemoryBackend(), JSONCodec{}},
		{"file json", fileJSON, JSONCodec{}},
		{"file yaml", fileYAML, YAMLCodec{}},
		{"sqlite json", sqlite, JSONCodec{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			adapter := NewAdapter(tc.backend, WithCodec(tc.codec))

			adapter.Save(ctx, sampleState())
			got, ok := adapter.Load(ctx)
			require.True(t, ok)
			if diff := cmp.Diff(sampleState(), got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdapterNullActiveSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	adapter := NewAdapter(backend)

	state := &chat.State{Sessions: []*chat.Session{chat.NewSession(chat.WithSessionID("a"))}, ActiveModel: "m"}
	adapter.Save(ctx, state)

	raw, err := backend.Read(ctx, StorageKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"activeSessionId":null`)

	got, ok := adapter.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "", got.ActiveSessionID)
}

func TestAdapterLoadAbsent(t *testing.T) {
	adapter := NewAdapter(NewMemoryBackend())
	_, ok := adapter.Load(context.Background())
	assert.False(t, ok)

	state := adapter.LoadOrDefault(context.Background())
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, state.Sessions[0].ID, state.ActiveSessionID)
	assert.Equal(t, chat.DefaultModel, state.ActiveModel)
}

func TestAdapterLoadFailsSoft(t *testing.T) {
	payloads := map[string]string{
		"not json":        `{{{`,
		"wrong shape":     `{"sessions":"nope"}`,
		"array":           `[1,2,3]`,
		"duplicate ids":   `{"sessions":[{"id":"a","title":"x","messages":[]},{"id":"a","title":"y","messages":[]}]}`,
		"unknown role":    `{"sessions":[{"id":"a","title":"x","messages":[{"role":"bot","content":"x"}]}]}`,
		"whitespace only": "  \n",
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			logs := captureLogs(t)
			ctx := context.Background()
			backend := NewMemoryBackend()
			require.NoError(t, backend.Write(ctx, StorageKey, []byte(payload)))

			_, ok := NewAdapter(backend).Load(ctx)
			assert.False(t, ok)
			assert.Contains(t, logs.String(), `"level":"warn"`)
		})
	}
}

func TestAdapterLoadReadErrorFailsSoft(t *testing.T) {
	logs := captureLogs(t)
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(), readErr: errors.New("disk on fire")}

	_, ok := NewAdapter(backend).Load(context.Background())
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "disk on fire")
}

func TestAdapterRepairsLegacySnapshot(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	legacy := `{"sessions":[{"id":"a","title":"Hi","messages":[{"role":"user","content":"Hi"}]}],"activeSessionId":"a"}`
	require.NoError(t, backend.Write(ctx, StorageKey, []byte(legacy)))

	got, ok := NewAdapter(backend, WithDefaultModel("x-ai/grok-3-mini")).Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "x-ai/grok-3-mini", got.ActiveModel)
	assert.Equal(t, "a", got.ActiveSessionID)
	assert.Len(t, got.Sessions[0].Messages, 1)
}

func TestAdapterRepairsDanglingActiveSession(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	payload := `{"sessions":[{"id":"a","title":"A","messages":null},{"id":"b","title":"B"}],"activeSessionId":"zzz","activeModel":"m"}`
	require.NoError(t, backend.Write(ctx, StorageKey, []byte(payload)))

	got, ok := NewAdapter(backend).Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", got.ActiveSessionID)
	assert.NotNil(t, got.Sessions[0].Messages)
	assert.NotNil(t, got.Sessions[1].Messages)
}

func TestAdapterSaveFailsSoft(t *testing.T) {
	logs := captureLogs(t)
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(), writeErr: errors.New("quota exceeded")}

	assert.NotPanics(t, func() {
		NewAdapter(backend).Save(context.Background(), sampleState())
	})
	assert.Contains(t, logs.String(), "quota exceeded")
}

func TestAdapterClear(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(NewMemoryBackend())
	adapter.Save(ctx, sampleState())
	adapter.Clear(ctx)

	_, ok := adapter.Load(ctx)
	assert.False(t, ok)
}

func TestAdapterBacksStore(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	adapter := NewAdapter(backend)

	store := chat.NewStore(adapter.LoadOrDefault(ctx), chat.WithSaver(adapter))
	id := store.ActiveSessionID()
	store.AppendMessage(ctx, id, chat.NewUserMessage("hello"))
	store.RenameSession(ctx, id, "hello")

	reloaded, ok := NewAdapter(backend).Load(ctx)
	require.True(t, ok)
	if diff := cmp.Diff(store.Snapshot(), reloaded, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("persisted state differs (-memory +persisted):\n%s", diff)
	}
}
