// Package mockapi serves a local todo collection resource with the same
// endpoints as the production API. It backs tests and `todo serve`.
package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Makepad-fr/tada-remote/internal/api"
	"github.com/Makepad-fr/tada-remote/internal/model"
)

// Server is an http.Handler for /todos and /todos/{id}.
type Server struct {
	store  Store
	logger *log.Logger
	prefix string
	router *mux.Router

	mu     sync.Mutex
	faults map[string][]int // method -> queued statuses
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrefix mounts the routes under prefix, e.g. "/api".
func WithPrefix(prefix string) Option {
	return func(s *Server) { s.prefix = "/" + strings.Trim(prefix, "/") }
}

// New builds a server over store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: log.New(io.Discard),
		faults: map[string][]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.injectFaults)

	sub := r
	if s.prefix != "" && s.prefix != "/" {
		sub = r.PathPrefix(s.prefix).Subrouter()
	}
	sub.HandleFunc("/todos", s.handleList).Methods(http.MethodGet)
	sub.HandleFunc("/todos", s.handleCreate).Methods(http.MethodPost)
	sub.HandleFunc("/todos/{id}", s.handlePatch).Methods(http.MethodPatch)
	sub.HandleFunc("/todos/{id}", s.handlePut).Methods(http.MethodPut)
	sub.HandleFunc("/todos/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "OK\n")
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next request with method answer status instead of
// being served. Calls queue up.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	method = strings.ToUpper(method)
	s.faults[method] = append(s.faults[method], status)
}

func (s *Server) takeFault(method string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.faults[method]
	if len(q) == 0 {
		return 0, false
	}
	s.faults[method] = q[1:]
	return q[0], true
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(api.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(api.RequestIDHeader, id)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := s.takeFault(r.Method); ok {
			s.logger.Warn("injected fault", "method", r.Method, "path", r.URL.Path, "status", status)
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.List()
	if err != nil {
		s.serverError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

type createBody struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	t, err := s.store.Create(text, body.Completed)
	if err != nil {
		s.serverError(w, "create", err)
		return
	}
	s.logger.Info("created", "id", t.ID)
	writeJSON(w, http.StatusCreated, t)
}

type patchBody struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body patchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.Text != nil && strings.TrimSpace(*body.Text) == "" {
		http.Error(w, "text must not be empty", http.StatusBadRequest)
		return
	}
	t, err := s.store.Update(id, func(t *model.Todo) {
		if body.Text != nil {
			t.Text = strings.TrimSpace(*body.Text)
		}
		if body.Completed != nil {
			t.Completed = *body.Completed
		}
	})
	s.writeUpdate(w, "patch", t, err)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body model.Todo
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	t, err := s.store.Update(id, func(t *model.Todo) {
		t.Text = text
		t.Completed = body.Completed
	})
	s.writeUpdate(w, "put", t, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.serverError(w, "delete", err)
		return
	}
	s.logger.Info("deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeUpdate(w http.ResponseWriter, op string, t model.Todo, err error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.serverError(w, op, err)
		return
	}
	s.logger.Info("updated", "id", t.ID, "completed", t.Completed)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
