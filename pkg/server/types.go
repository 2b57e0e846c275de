package server

import (
	"github.com/go-go-golems/angela/pkg/chat"
)

const (
	MethodStateGet        = "state.get"
	MethodModelList       = "model.list"
	MethodModelSelect     = "model.select"
	MethodSessionCreate   = "session.create"
	MethodSessionSelect   = "session.select"
	MethodSessionDelete   = "session.delete"
	MethodSessionReset    = "session.reset"
	MethodSessionClearAll = "session.clear_all"
	MethodSessionSearch   = "session.search"
	MethodSessionExport   = "session.export"
	MethodChatSend        = "chat.send"
	MethodChatEdit        = "chat.edit"
	NotificationChatEvent = "chat.event"
)

type ModelSelectParams struct {
	ModelID string `json:"modelId"`
}

type SessionParams struct {
	SessionID string `json:"sessionId"`
}

type SessionSearchParams struct {
	Query string `json:"query"`
}

type SessionExportParams struct {
	SessionID string `json:"sessionId"`
	Format    string `json:"format"`
}

type SessionExportResult struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

type ChatSendParams struct {
	Text string `json:"text"`
}

type ChatEditParams struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// StateResult is the full chat state as seen by a client, plus whether a reply is pending.
type StateResult struct {
	Sessions        []*chat.Session `json:"sessions"`
	ActiveSessionID *string         `json:"activeSessionId"`
	ActiveModel     string          `json:"activeModel"`
	Pending         bool            `json:"pending"`
}

func newStateResult(state *chat.State, pending bool) *StateResult {
	ret := &StateResult{
		Sessions:    state.Sessions,
		ActiveModel: state.ActiveModel,
		Pending:     pending,
	}
	if state.ActiveSessionID != "" {
		id := state.ActiveSessionID
		ret.ActiveSessionID = &id
	}
	return ret
}
