package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Saver is the persistence side of the Store. Implementations fail soft: the store never
// learns whether a write succeeded.
type Saver interface {
	Save(ctx context.Context, state *State)
	Clear(ctx context.Context)
}

type nopSaver struct{}

func (nopSaver) Save(context.Context, *State) {}
func (nopSaver) Clear(context.Context)        {}

// Store owns the authoritative chat state. Every mutation runs under one lock, is followed by
// an unconditional save, and is reported to listeners after the lock is released. Listeners
// are called one change at a time, in the order the changes were applied.
//
// Operations on unknown sessions or out of range message indices are silent no-ops; they
// report false but are still followed by a save.
type Store struct {
	mu           sync.Mutex
	state        *State
	saver        Saver
	newID        func() string
	defaultModel string

	// notifyMu is acquired before mu is released and held while listeners run
	notifyMu sync.Mutex

	listenersMu    sync.RWMutex
	listeners      []registeredListener
	nextListenerID int
}

type registeredListener struct {
	id       int
	listener ChangeListener
}

type StoreOption func(*Store)

func WithSaver(saver Saver) StoreOption {
	return func(s *Store) {
		s.saver = saver
	}
}

func WithListener(listener ChangeListener) StoreOption {
	return func(s *Store) {
		s.nextListenerID++
		s.listeners = append(s.listeners, registeredListener{id: s.nextListenerID, listener: listener})
	}
}

func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) {
		s.newID = newID
	}
}

func WithDefaultModel(model string) StoreOption {
	return func(s *Store) {
		if model != "" {
			s.defaultModel = model
		}
	}
}

// NewStore takes ownership of a copy of initial. A nil initial state starts from a single
// active default session.
func NewStore(initial *State, options ...StoreOption) *Store {
	ret := &Store{
		saver:        nopSaver{},
		newID:        uuid.NewString,
		defaultModel: DefaultModel,
	}
	for _, option := range options {
		option(ret)
	}

	if initial == nil {
		session := NewSession(WithSessionID(ret.newID()))
		ret.state = &State{
			Sessions:        []*Session{session},
			ActiveSessionID: session.ID,
			ActiveModel:     ret.defaultModel,
		}
	} else {
		ret.state = initial.Clone()
		if ret.state.ActiveModel == "" {
			ret.state.ActiveModel = ret.defaultModel
		}
	}

	return ret
}

// AddListener registers listener and returns a function that unregisters it.
func (s *Store) AddListener(listener ChangeListener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, registeredListener{id: id, listener: listener})

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(change Change) {
	s.listenersMu.RLock()
	listeners := make([]registeredListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l.listener.OnChange(change)
	}
}

func (s *Store) mutate(ctx context.Context, f func(state *State) (Change, bool)) (Change, bool) {
	s.mu.Lock()
	change, applied := f(s.state)
	s.saver.Save(ctx, s.state)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	log.Debug().
		Str("op", string(change.Op)).
		Str("session_id", change.SessionID).
		Int("index", change.Index).
		Bool("applied", applied).
		Msg("chat store mutation")

	if applied {
		s.notify(change)
	}
	return change, applied
}

// CreateSession prepends a new empty session, makes it active and returns its id.
func (s *Store) CreateSession(ctx context.Context) string {
	change, _ := s.mutate(ctx, func(state *State) (Change, bool) {
		session := NewSession(WithSessionID(s.newID()))
		state.Sessions = append([]*Session{session}, state.Sessions...)
		state.ActiveSessionID = session.ID
		return Change{Op: OpSessionCreated, SessionID: session.ID, Index: -1}, true
	})
	return change.SessionID
}

// SetActiveSession does not check that id exists; callers pass ids from the current list.
func (s *Store) SetActiveSession(ctx context.Context, id string) {
	s.mutate(ctx, func(state *State) (Change, bool) {
		state.ActiveSessionID = id
		return Change{Op: OpSessionSelected, SessionID: id, Index: -1}, true
	})
}

// AppendMessage appends message to the session and returns its index in the message list.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, message Message) (int, bool) {
	change, ok := s.mutate(ctx, func(state *State) (Change, bool) {
		session, ok := state.Session(sessionID)
		if !ok {
			return Change{Op: OpMessageAppended, SessionID: sessionID, Index: -1}, false
		}
		session.Messages = append(session.Messages, message)
		return Change{Op: OpMessageAppended, SessionID: sessionID, Index: len(session.Messages) - 1}, true
	})
	return change.Index, ok
}

func (s *Store) RenameSession(ctx context.Context, sessionID string, title string) bool {
	_, ok := s.mutate(ctx, func(state *State) (Change, bool) {
		session, ok := state.Session(sessionID)
		if !ok {
			return Change{Op: OpSessionRenamed, SessionID: sessionID, Index: -1}, false
		}
		session.Title = title
		return Change{Op: OpSessionRenamed, SessionID: sessionID, Index: -1}, true
	})
	return ok
}

// EditMessage replaces the content of one message in place, keeping its role.
func (s *Store) EditMessage(ctx context.Context, sessionID string, index int, content string) bool {
	_, ok := s.mutate(ctx, func(state *State) (Change, bool) {
		session, ok := state.Session(sessionID)
		if !ok || index < 0 || index >= len(session.Messages) {
			return Change{Op: OpMessageEdited, SessionID: sessionID, Index: index}, false
		}
		session.Messages[index].Content = content
		return Change{Op: OpMessageEdited, SessionID: sessionID, Index: index}, true
	})
	return ok
}

// ResetActiveSession empties the active session's messages, keeping its id and title.
func (s *Store) ResetActiveSession(ctx context.Context) bool {
	_, ok := s.mutate(ctx, func(state *State) (Change, bool) {
		session, ok := state.ActiveSession()
		if !ok {
			return Change{Op: OpSessionReset, Index: -1}, false
		}
		session.Messages = []Message{}
		return Change{Op: OpSessionReset, SessionID: session.ID, Index: -1}, true
	})
	return ok
}

// ClearAllSessions replaces every session with one new default session and returns its id.
func (s *Store) ClearAllSessions(ctx context.Context) string {
	change, _ := s.mutate(ctx, func(state *State) (Change, bool) {
		session := NewSession(WithSessionID(s.newID()))
		state.Sessions = []*Session{session}
		state.ActiveSessionID = session.ID
		return Change{Op: OpSessionsCleared, SessionID: session.ID, Index: -1}, true
	})
	return change.SessionID
}

// DeleteSession removes a session. When it was active, the first remaining session becomes
// active, or none when the list is empty.
func (s *Store) DeleteSession(ctx context.Context, id string) bool {
	_, ok := s.mutate(ctx, func(state *State) (Change, bool) {
		kept := make([]*Session, 0, len(state.Sessions))
		for _, session := range state.Sessions {
			if session.ID != id {
				kept = append(kept, session)
			}
		}
		removed := len(kept) != len(state.Sessions)
		state.Sessions = kept

		if state.ActiveSessionID == id {
			state.ActiveSessionID = ""
			if len(state.Sessions) > 0 {
				state.ActiveSessionID = state.Sessions[0].ID
			}
		}
		return Change{Op: OpSessionDeleted, SessionID: id, Index: -1}, removed
	})
	return ok
}

func (s *Store) SetActiveModel(ctx context.Context, modelID string) {
	s.mutate(ctx, func(state *State) (Change, bool) {
		state.ActiveModel = modelID
		return Change{Op: OpModelChanged, Index: -1, ModelID: modelID}, true
	})
}

// Purge removes the persisted snapshot and leaves an empty, unpersisted state behind.
// The caller is expected to create a session right away.
func (s *Store) Purge(ctx context.Context) {
	s.mu.Lock()
	s.saver.Clear(ctx)
	s.state = &State{
		Sessions:    []*Session{},
		ActiveModel: s.defaultModel,
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	log.Debug().Msg("chat store purged")
	s.notify(Change{Op: OpStatePurged, Index: -1, ModelID: s.defaultModel})
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.state.Session(id)
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

func (s *Store) ActiveSession() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.state.ActiveSession()
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

func (s *Store) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveSessionID
}

func (s *Store) ActiveModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveModel
}

func (s *Store) Sessions() []*Session {
	return s.SearchSessions("")
}

// SearchSessions returns the sessions whose title contains query, ignoring case, in list order.
func (s *Store) SearchSessions(query string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(query)
	ret := make([]*Session, 0, len(s.state.Sessions))
	for _, session := range s.state.Sessions {
		if strings.Contains(strings.ToLower(session.Title), query) {
			ret = append(ret, session.Clone())
		}
	}
	return ret
}
