package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/export"
	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

// Header names carrying the caller identity.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderContextID = "X-Context-ID"
)

// Server provides the HTTP API for taskdesk.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server. st is only used for health checks.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Task endpoints
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)

	// User endpoints
	mux.HandleFunc("/users", s.handleUsers)
	mux.HandleFunc("/users/", s.handleUserByID)

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/export", s.handleExport)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("[api] listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		health.OK = false
		health.DB = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// handleTasks handles POST /tasks and GET /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r, actor)
	case http.MethodGet:
		s.listTasks(w, r, actor)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByID handles /tasks/{id}/*
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}
	taskID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || taskID <= 0 {
		writeError(w, &lifecycle.ValidationError{Field: "task id", Reason: "must be a positive number"})
		return
	}

	if len(parts) > 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, r, actor, taskID)
	case action == "" && r.Method == http.MethodDelete:
		s.hardDeleteTask(w, r, actor, taskID)
	case action == "status" && r.Method == http.MethodPost:
		s.changeStatus(w, r, actor, taskID)
	case action == "assign" && r.Method == http.MethodPost:
		s.reassign(w, r, actor, taskID)
	case action == "deadline" && r.Method == http.MethodPost:
		s.reschedule(w, r, actor, taskID)
	case action == "text" && r.Method == http.MethodPost:
		s.editText(w, r, actor, taskID)
	case action == "history" && r.Method == http.MethodGet:
		s.getHistory(w, r, actor, taskID)
	case action == "journal" && r.Method == http.MethodGet:
		s.getJournal(w, r, actor, taskID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Task Handlers ---

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
	var req CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.service.Engine().Create(r.Context(), actor, lifecycle.CreateRequest{
		Text:     req.Text,
		Assignee: req.Assignee,
		Deadline: req.Deadline,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
	page, err := s.service.ListTasks(r.Context(), actor, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	task, err := s.service.Engine().Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) hardDeleteTask(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	if err := s.service.Engine().HardDelete(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StatusRequest is the body of POST /tasks/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := s.service.Engine().ChangeStatus(r.Context(), actor, id, req.Status)
	respondTask(w, task, err)
}

// AssignRequest is the body of POST /tasks/{id}/assign.
type AssignRequest struct {
	Assignee string `json:"assignee"`
}

func (s *Server) reassign(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := s.service.Engine().Reassign(r.Context(), actor, id, req.Assignee)
	respondTask(w, task, err)
}

// DeadlineRequest is the body of POST /tasks/{id}/deadline. An empty deadline clears it.
type DeadlineRequest struct {
	Deadline string `json:"deadline"`
}

func (s *Server) reschedule(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	var req DeadlineRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := s.service.Engine().Reschedule(r.Context(), actor, id, req.Deadline)
	respondTask(w, task, err)
}

// TextRequest is the body of POST /tasks/{id}/text. Mode is replace or append.
type TextRequest struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
}

func (s *Server) editText(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	mode := lifecycle.EditMode(req.Mode)
	if mode == "" {
		mode = lifecycle.EditAppend
	}
	task, err := s.service.Engine().EditText(r.Context(), actor, id, mode, req.Text)
	respondTask(w, task, err)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	entries, err := s.service.Engine().History(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor, id int64) {
	entries, err := s.service.Decisions(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- User Handlers ---

// handleUsers handles GET /users and POST /users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := s.service.Engine().ListUsers(r.Context(), actor)
		if err != nil {
			writeError(w, err)
			return
		}
		if users == nil {
			users = []models.User{}
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var u models.User
		if !decode(w, r, &u) {
			return
		}
		added, err := s.service.Engine().AddUser(r.Context(), actor, u)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, added)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUserByID handles DELETE /users/{id}
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/users/"), 10, 64)
	if err != nil {
		writeError(w, &lifecycle.ValidationError{Field: "user id", Reason: "must be a number"})
		return
	}
	if err := s.service.Engine().RemoveUser(r.Context(), actor, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// --- Chat and Export ---

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.service.Chat(r.Context(), actor, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	data, err := s.service.Export(r.Context(), actor, format)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=tasks.%s", format))
	w.Write(data)
}

// --- helpers ---

// actorFrom reads the caller identity. The context defaults to the actor's
// own id, which is what a private chat with the bot looks like. Group chats
// have negative ids; zero is never a chat.
func actorFrom(r *http.Request) (lifecycle.Actor, error) {
	id, err := strconv.ParseInt(r.Header.Get(HeaderActorID), 10, 64)
	if err != nil || id <= 0 {
		return lifecycle.Actor{}, ErrMissingActor
	}
	actor := lifecycle.Actor{ID: id, ContextID: id}
	if v := r.Header.Get(HeaderContextID); v != "" {
		ctxID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ctxID == 0 {
			return lifecycle.Actor{}, &lifecycle.ValidationError{Field: "context id", Reason: "must be a non-zero number"}
		}
		actor.ContextID = ctxID
	}
	return actor, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, ErrInvalidJSON)
		return false
	}
	return true
}

func respondTask(w http.ResponseWriter, task *models.Task, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
