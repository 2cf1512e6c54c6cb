// Package fakeapi is an in-memory stand-in for the screening product API,
// served with httptest for unit tests of the API client and data manager.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/screening-e2e/pkg/apiclient"
)

const signingSecret = "fakeapi-signing-secret-0123456789abcdef"

// Admin credentials accepted by every Server.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin-password"
)

// fault answers matching requests with status. times counts the remaining
// failures: 0 means unlimited and -1 means exhausted.
type fault struct {
	method string
	prefix string
	status int
	times  int
}

// Server is a fake product API. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	users        map[string]apiclient.User
	passwords    map[string][]byte // bcrypt hashes keyed by email
	applications map[string]apiclient.Application
	sessions     map[string]apiclient.Session
	calls        map[string]int
	faults       []*fault
	tokenTTL     time.Duration
	lastAuth     apiclient.AuthRequest
}

// New starts a Server and closes it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:        make(map[string]apiclient.User),
		passwords:    map[string][]byte{AdminEmail: hashPassword(AdminPassword)},
		applications: make(map[string]apiclient.Application),
		sessions:     make(map[string]apiclient.Session),
		calls:        make(map[string]int),
		tokenTTL:     time.Hour,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countCalls, s.injectFaults)

	r.Post("/auth", s.handleAuth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/users", s.createUser)
		r.Get("/users/{id}", s.getUser)
		r.Delete("/users/{id}", s.deleteUser)

		r.Post("/applications", s.createApplication)
		r.Get("/applications", s.listApplications)
		r.Get("/applications/{id}", s.getApplication)
		r.Delete("/applications/{id}", s.deleteApplication)

		r.Post("/sessions", s.createSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.deleteSession)
	})
	return r
}

// SetTokenTTL changes the lifetime of tokens issued by /auth.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	s.tokenTTL = d
	s.mu.Unlock()
}

// IssueToken signs a token that expires after ttl. A negative ttl yields an
// already expired token.
func (s *Server) IssueToken(subject string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	if err != nil {
		panic(fmt.Sprintf("fakeapi: sign token: %v", err))
	}
	return signed
}

// Fail makes the next times requests matching method and path prefix answer
// with status. times <= 0 fails forever.
func (s *Server) Fail(method, pathPrefix string, status, times int) {
	if times < 0 {
		times = 0
	}
	s.mu.Lock()
	s.faults = append(s.faults, &fault{method: method, prefix: pathPrefix, status: status, times: times})
	s.mu.Unlock()
}

// Calls returns how many requests hit "METHOD /path".
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// CallsWithPrefix sums the requests whose method matches and whose path
// starts with prefix.
func (s *Server) CallsWithPrefix(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.calls {
		if strings.HasPrefix(k, method+" "+prefix) {
			n += v
		}
	}
	return n
}

// LastAuth returns the body of the most recent /auth request.
func (s *Server) LastAuth() apiclient.AuthRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// Counts returns how many users, applications and sessions exist.
func (s *Server) Counts() (users, applications, sessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.applications), len(s.sessions)
}

// SeedUser stores a user directly, bypassing the API.
func (s *Server) SeedUser(u apiclient.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.passwords[u.Email] = hashPassword(password)
}

// hashPassword uses the minimum cost so tests stay fast.
func hashPassword(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("fakeapi: hash password: %v", err))
	}
	return hash
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var hit *fault
		for _, f := range s.faults {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) && f.times >= 0 {
				hit = f
				if f.times > 0 {
					f.times--
					if f.times == 0 {
						f.times = -1
					}
				}
				break
			}
		}
		s.mu.Unlock()

		if hit != nil {
			writeError(w, hit.status, "INJECTED", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(signingSecret), nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req apiclient.AuthRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	s.lastAuth = req
	want, known := s.passwords[req.Email]
	ttl := s.tokenTTL
	s.mu.Unlock()

	if !known || bcrypt.CompareHashAndPassword(want, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, apiclient.AuthResponse{
		Token:     s.IssueToken(req.Email, ttl),
		ExpiresAt: time.Now().Add(ttl).UTC(),
	})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req apiclient.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.passwords[req.Email]; taken {
		writeError(w, http.StatusConflict, "CONFLICT", "email already registered")
		return
	}
	u := apiclient.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.passwords[u.Email] = hashPassword(req.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.users[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	delete(s.users, id)
	delete(s.passwords, u.Email)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	var req apiclient.CreateApplicationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required")
		return
	}
	a := apiclient.Application{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Name:      req.Name,
		Status:    req.Status,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.applications[a.ID] = a
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listApplications(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]apiclient.Application, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, a)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, ok := s.applications[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "application not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteApplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.applications[id]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "application not found")
		return
	}
	delete(s.applications, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req apiclient.CreateSessionRequest
	if !decode(w, r, &req) {
		return
	}
	sess := apiclient.Session{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		ApplicationID: req.ApplicationID,
		Status:        "pending",
		CreatedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess, ok := s.sessions[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.sessions[id]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	delete(s.sessions, id)
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiclient.APIError{Code: code, Message: msg})
}
