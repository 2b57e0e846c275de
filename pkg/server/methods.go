package server

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/export"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
)

type methodHandler struct {
	*Server
	log zerolog.Logger
}

func (h *methodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Str("method", req.Method).Msg("rpc handler panic")
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "internal error")
		}
	}()

	h.log.Debug().Str("method", req.Method).Str("id", req.ID.String()).Msg("received request")

	if req.Notif {
		return
	}

	switch req.Method {
	case MethodStateGet:
		h.replyState(ctx, conn, req)
	case MethodModelList:
		h.reply(ctx, conn, req, h.orchestrator.Registry().List())
	case MethodModelSelect:
		h.handleModelSelect(ctx, conn, req)
	case MethodSessionCreate:
		h.handleSessionCreate(ctx, conn, req)
	case MethodSessionSelect:
		h.handleSessionSelect(ctx, conn, req)
	case MethodSessionDelete:
		h.handleSessionDelete(ctx, conn, req)
	case MethodSessionReset:
		if err := h.orchestrator.ResetActiveSession(ctx); err != nil {
			h.replyOrchestratorError(ctx, conn, req, err)
			return
		}
		h.replyState(ctx, conn, req)
	case MethodSessionClearAll:
		h.orchestrator.ClearAllSessions(ctx)
		h.replyState(ctx, conn, req)
	case MethodSessionSearch:
		h.handleSessionSearch(ctx, conn, req)
	case MethodSessionExport:
		h.handleSessionExport(ctx, conn, req)
	case MethodChatSend:
		h.handleChatSend(ctx, conn, req)
	case MethodChatEdit:
		h.handleChatEdit(ctx, conn, req)
	default:
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *methodHandler) handleModelSelect(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params ModelSelectParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if _, err := h.orchestrator.SelectModel(ctx, params.ModelID); err != nil {
		h.replyOrchestratorError(ctx, conn, req, err)
		return
	}
	h.log.Info().Str("model", params.ModelID).Msg("model selected")
	h.replyState(ctx, conn, req)
}

func (h *methodHandler) handleSessionCreate(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	id := h.orchestrator.NewSession(ctx)
	session, ok := h.orchestrator.Store().Session(id)
	if !ok {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to create session")
		return
	}
	h.log.Info().Str("session_id", id).Msg("session created")
	h.reply(ctx, conn, req, session)
}

func (h *methodHandler) handleSessionSelect(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if err := h.orchestrator.SelectSession(ctx, params.SessionID); err != nil {
		h.replyOrchestratorError(ctx, conn, req, err)
		return
	}
	h.replyState(ctx, conn, req)
}

func (h *methodHandler) handleSessionDelete(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if err := h.orchestrator.DeleteSession(ctx, params.SessionID); err != nil {
		h.replyOrchestratorError(ctx, conn, req, err)
		return
	}
	h.log.Info().Str("session_id", params.SessionID).Msg("session deleted")
	h.replyState(ctx, conn, req)
}

func (h *methodHandler) handleSessionSearch(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionSearchParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	h.reply(ctx, conn, req, h.orchestrator.Store().SearchSessions(params.Query))
}

func (h *methodHandler) handleSessionExport(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionExportParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if params.Format == "" {
		params.Format = "md"
	}
	exporter, err := export.NewExporter(params.Format)
	if err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, err.Error())
		return
	}
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = h.orchestrator.Store().ActiveSessionID()
	}
	session, ok := h.orchestrator.Store().Session(sessionID)
	if !ok {
		h.replyOrchestratorError(ctx, conn, req, errors.Wrapf(orchestrator.ErrSessionNotFound, "session %q", sessionID))
		return
	}

	buf := &bytes.Buffer{}
	if err := exporter.Export(session, buf); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to export session")
		return
	}
	h.reply(ctx, conn, req, SessionExportResult{Format: exporter.Extension(), Content: buf.String()})
}

func (h *methodHandler) handleChatSend(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params ChatSendParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	sessionID, sent := h.orchestrator.Send(ctx, params.Text)
	if !sent {
		sessionID = h.orchestrator.Store().ActiveSessionID()
	}
	h.replySession(ctx, conn, req, sessionID)
}

func (h *methodHandler) handleChatEdit(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params ChatEditParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	sessionID, err := h.orchestrator.EditAndResend(ctx, params.Index, params.Content)
	if err != nil {
		h.replyOrchestratorError(ctx, conn, req, err)
		return
	}
	h.replySession(ctx, conn, req, sessionID)
}

func (h *methodHandler) replySession(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, sessionID string) {
	var session *chat.Session
	if s, ok := h.orchestrator.Store().Session(sessionID); ok {
		session = s
	}
	h.reply(ctx, conn, req, session)
}

func (h *methodHandler) replyState(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.reply(ctx, conn, req, newStateResult(h.orchestrator.Store().Snapshot(), h.orchestrator.Pending()))
}

func (h *methodHandler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result interface{}) {
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error().Err(err).Str("method", req.Method).Msg("failed to send response")
	}
}

// replyOrchestratorError maps caller errors to InvalidParams and everything else to InternalError.
func (h *methodHandler) replyOrchestratorError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrSessionNotFound),
		errors.Is(err, orchestrator.ErrNoActiveSession),
		errors.Is(err, orchestrator.ErrUnknownModel),
		errors.Is(err, orchestrator.ErrInvalidEdit):
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, err.Error())
	default:
		h.log.Error().Err(err).Str("method", req.Method).Msg("request failed")
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "internal error")
	}
}

func (h *methodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, code int64, message string) {
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, id, err); replyErr != nil {
		h.log.Error().Err(replyErr).Msg("failed to send error response")
	}
}

// unmarshalParams treats missing params as an empty object.
func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	return json.Unmarshal(*req.Params, v)
}
