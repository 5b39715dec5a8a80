// Package server hosts dialogue runs over websockets: it owns the
// sessions, persists suspended runs in sqlite, and issues signed resume
// tokens, while all execution goes through the machine's step entry
// point.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"github.com/strandvm/strand/pkg/bytecode"
	"github.com/strandvm/strand/vm"
)

// Server serves one program (typically a merged collection) to any
// number of concurrent dialogue sessions.
type Server struct {
	cfg      Config
	program  *bytecode.Program
	start    string
	runner   *vm.Runner
	sessions *SessionStore
	store    *Store // nil when persistence is disabled
	upgrader websocket.Upgrader
	log      commonlog.Logger

	httpServer *http.Server
}

// New creates a server for the given program. start names the node
// fresh sessions begin at. A nil library serves built-ins only.
func New(cfg Config, program *bytecode.Program, start string, library *vm.Library) (*Server, error) {
	if _, ok := program.Node(start); !ok {
		return nil, fmt.Errorf("start node %q not in program", start)
	}

	runner := vm.NewRunner(library)
	runner.MaxInstructions = cfg.MaxInstructions

	s := &Server{
		cfg:      cfg,
		program:  program,
		start:    start,
		runner:   runner,
		sessions: NewSessionStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
			},
		},
		log: commonlog.GetLogger("strand.server"),
	}

	if cfg.DBPath != "" {
		store, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	return s, nil
}

// ListenAndServe starts the HTTP server on the configured address and
// blocks until it stops.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.handleWS)

	s.httpServer = &http.Server{Addr: s.cfg.Addr, Handler: mux}
	s.log.Infof("listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Close shuts the server down and releases the session store.
func (s *Server) Close() error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			return err
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// startSession creates a fresh run and answers with its ID and resume
// token.
func (s *Server) startSession(start string) (*Session, serverMessage, error) {
	if start == "" {
		start = s.start
	}
	cp, err := vm.NewCheckpoint(s.program, start)
	if err != nil {
		return nil, serverMessage{}, err
	}
	vars := vm.NewMapStore()
	vm.Seed(s.program, vars)

	session := s.sessions.Create(cp, vars)
	token, err := GenerateSessionToken(s.cfg.tokenSecret(), session.ID, s.cfg.tokenTTL())
	if err != nil {
		s.sessions.Destroy(session.ID)
		return nil, serverMessage{}, err
	}

	s.log.Infof("session %s started at %q", session.ID, start)
	return session, serverMessage{Type: "session", SessionID: session.ID, Token: token}, nil
}

// resumeSession revives a session from a resume token, falling back to
// the sqlite store for sessions from before a restart.
func (s *Server) resumeSession(token string) (*Session, serverMessage, error) {
	id, err := ValidateSessionToken(s.cfg.tokenSecret(), token)
	if err != nil {
		return nil, serverMessage{}, err
	}

	if session, ok := s.sessions.Get(id); ok {
		return session, serverMessage{Type: "session", SessionID: id}, nil
	}
	if s.store == nil {
		return nil, serverMessage{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	loaded, err := s.store.Load(id)
	if err != nil {
		return nil, serverMessage{}, err
	}
	session := s.sessions.Restore(loaded.ID, loaded.Checkpoint, loaded.Vars)
	s.log.Infof("session %s restored from store", id)
	return session, serverMessage{Type: "session", SessionID: id}, nil
}

// step advances a session and persists the resulting suspend point.
// A failed step leaves the session checkpoint untouched.
func (s *Server) step(session *Session, resume *vm.ResumeInput) serverMessage {
	session.mu.Lock()
	defer session.mu.Unlock()

	next, event, err := s.runner.Step(s.program, session.Checkpoint, session.Vars, resume)
	if err != nil {
		s.log.Errorf("session %s: %v", session.ID, err)
		return errorMessage(err)
	}
	session.Checkpoint = next

	if s.store != nil {
		if next.Done {
			if err := s.store.Delete(session.ID); err != nil {
				s.log.Errorf("session %s: %v", session.ID, err)
			}
		} else if err := s.store.Save(session); err != nil {
			s.log.Errorf("session %s: %v", session.ID, err)
		}
	}
	if next.Done {
		s.sessions.Destroy(session.ID)
	}

	return eventMessage(event)
}

// endSession discards a run before completion.
func (s *Server) endSession(session *Session) {
	s.sessions.Destroy(session.ID)
	if s.store != nil {
		if err := s.store.Delete(session.ID); err != nil {
			s.log.Errorf("session %s: %v", session.ID, err)
		}
	}
	s.log.Infof("session %s ended", session.ID)
}
