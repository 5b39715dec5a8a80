package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/strandvm/strand/vm"
)

// originAllowed decides the websocket handshake's origin check.
// Requests without an Origin header come from non-browser clients and
// are accepted; browser origins must match the configured list.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == strings.TrimSpace(a) {
			return true
		}
	}
	return false
}

// Client messages. Type is one of "start", "resume", "step", "choose",
// "end".
type clientMessage struct {
	Type string `json:"type"`

	// Start node override for "start"; empty uses the server default.
	Start string `json:"start,omitempty"`

	// Resume token for "resume".
	Token string `json:"token,omitempty"`

	// Chosen option index for "choose".
	Selection int `json:"selection,omitempty"`
}

// Server messages. Type is one of "session", "line", "options",
// "command", "complete", "error". Key always names a string-table
// entry; error replies carry their classification in Code.
type serverMessage struct {
	Type string `json:"type"`

	SessionID string `json:"session_id,omitempty"`
	Token     string `json:"token,omitempty"`

	Key           string       `json:"key,omitempty"`
	Substitutions []string     `json:"substitutions,omitempty"`
	Options       []optionInfo `json:"options,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type optionInfo struct {
	Index         int      `json:"index"`
	Key           string   `json:"key"`
	Substitutions []string `json:"substitutions,omitempty"`
	Enabled       bool     `json:"enabled"`
}

// eventMessage maps a machine event to its wire form.
func eventMessage(event vm.Event) serverMessage {
	switch e := event.(type) {
	case vm.ShowLine:
		return serverMessage{Type: "line", Key: e.Key, Substitutions: e.Substitutions}
	case vm.RunCommand:
		return serverMessage{Type: "command", Key: e.Key, Substitutions: e.Substitutions}
	case vm.ShowOptions:
		options := make([]optionInfo, len(e.Options))
		for i, opt := range e.Options {
			options[i] = optionInfo{
				Index:         i,
				Key:           opt.Key,
				Substitutions: opt.Substitutions,
				Enabled:       opt.Enabled,
			}
		}
		return serverMessage{Type: "options", Options: options}
	case vm.DialogueComplete:
		return serverMessage{Type: "complete"}
	default:
		return serverMessage{Type: "error", Error: fmt.Sprintf("unhandled event %T", event)}
	}
}

// errorMessage maps a step failure to its wire form, preserving the
// taxonomy for clients that branch on it.
func errorMessage(err error) serverMessage {
	msg := serverMessage{Type: "error", Error: err.Error()}
	switch {
	case errors.Is(err, vm.ErrInvalidResumeInput):
		msg.Code = "invalid_selection"
	case errors.Is(err, vm.ErrAlreadyComplete):
		msg.Code = "already_complete"
	case errors.Is(err, ErrSessionNotFound):
		msg.Code = "session_not_found"
	default:
		msg.Code = "story_error"
	}
	return msg
}

// handleWS upgrades the connection and runs the message loop. One
// connection drives one session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var session *Session
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Infof("connection closed: %v", err)
			}
			return
		}

		var reply serverMessage
		session, reply = s.dispatch(session, msg)
		if err := conn.WriteJSON(reply); err != nil {
			s.log.Errorf("write failed: %v", err)
			return
		}
	}
}

// dispatch handles one client message, returning the session the
// connection continues with.
func (s *Server) dispatch(session *Session, msg clientMessage) (*Session, serverMessage) {
	switch msg.Type {
	case "start":
		fresh, reply, err := s.startSession(msg.Start)
		if err != nil {
			return session, errorMessage(err)
		}
		return fresh, reply

	case "resume":
		restored, reply, err := s.resumeSession(msg.Token)
		if err != nil {
			return session, errorMessage(err)
		}
		return restored, reply

	case "step":
		if session == nil {
			return nil, errorMessage(fmt.Errorf("%w: no session started", ErrSessionNotFound))
		}
		return session, s.step(session, nil)

	case "choose":
		if session == nil {
			return nil, errorMessage(fmt.Errorf("%w: no session started", ErrSessionNotFound))
		}
		return session, s.step(session, &vm.ResumeInput{Selection: msg.Selection})

	case "end":
		if session != nil {
			s.endSession(session)
		}
		return nil, serverMessage{Type: "complete"}

	default:
		return session, serverMessage{Type: "error", Code: "bad_request",
			Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}
