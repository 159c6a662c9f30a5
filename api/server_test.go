package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richardl62/richards-old-games-server/game/config"
	"github.com/richardl62/richards-old-games-server/game/engine"
	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/service"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error
	ClearSessionsFunc func(ctx context.Context) (int, error)

	// Session State
	GetSessionStateFunc func(ctx context.Context, sessionID string) (state.Document, error)

	// Configuration
	ListKindsFunc func(ctx context.Context) (*service.KindsInfo, error)

	// Health
	StatsFunc func(ctx context.Context) (*engine.Stats, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	return &service.SessionInfo{
		ID:        "100001",
		Kind:      "default",
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:        sessionID,
		Kind:      "default",
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) ClearSessions(ctx context.Context) (int, error) {
	if m.ClearSessionsFunc != nil {
		return m.ClearSessionsFunc(ctx)
	}
	return 0, nil
}

// Session State
func (m *MockGameService) GetSessionState(ctx context.Context, sessionID string) (state.Document, error) {
	if m.GetSessionStateFunc != nil {
		return m.GetSessionStateFunc(ctx, sessionID)
	}
	return state.Document{}, nil
}

// Configuration
func (m *MockGameService) ListKinds(ctx context.Context) (*service.KindsInfo, error) {
	if m.ListKindsFunc != nil {
		return m.ListKindsFunc(ctx)
	}
	return &service.KindsInfo{DefaultKind: "default"}, nil
}

// Health
func (m *MockGameService) Stats(ctx context.Context) (*engine.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &engine.Stats{}, nil
}

// Test helpers
func setupTestServer(mockService *MockGameService, opts ...Option) *Server {
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return NewServer(mockService, ws, opts...)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		expectedCode   string
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with defaults",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					if req.ID != "" || req.Kind != "" {
						t.Errorf("Expected empty request, got %+v", req)
					}
					return &service.SessionInfo{ID: "123456", Kind: "default", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "123456" {
					t.Errorf("Expected session ID 123456, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with id and kind",
			requestBody: service.CreateSessionRequest{ID: "lobby", Kind: "chess"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: req.ID, Kind: req.Kind, CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "lobby" || resp.Kind != "chess" {
					t.Errorf("Expected lobby/chess, got %s/%s", resp.ID, resp.Kind)
				}
			},
		},
		{
			name:        "Existing id",
			requestBody: service.CreateSessionRequest{ID: "lobby"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to create session: %w", session.ErrSessionAlreadyExists)
				}
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "already_exists",
		},
		{
			name:        "Invalid kind",
			requestBody: service.CreateSessionRequest{Kind: "Bad Kind"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, gameerr.New(gameerr.ErrInvalidArgument, "invalid session kind %q", req.Kind)
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_argument",
		},
		{
			name:        "Identifier space exhausted",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, gameerr.New(gameerr.ErrAllocationExhausted, "no free session id")
				}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "allocation_exhausted",
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal",
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedCode != "" {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["code"] != tt.expectedCode {
					t.Errorf("Expected code %s, got %s", tt.expectedCode, resp["code"])
				}
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCreateSessionMalformedBody(t *testing.T) {
	called := false
	mockService := &MockGameService{
		CreateSessionFunc: func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString(`{"id":`))
	w := serve(setupTestServer(mockService), req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if called {
		t.Error("Service should not be called for a malformed body")
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(minutes int) *time.Time {
		ts := base.Add(time.Duration(minutes) * time.Minute)
		return &ts
	}
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "a", CreatedAt: base, LastActivityAt: at(30)},
			{ID: "b", CreatedAt: base.Add(10 * time.Minute)},
			{ID: "c", CreatedAt: base.Add(20 * time.Minute), LastActivityAt: at(25)},
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"Default sorts by activity, newest first", "", []string{"a", "c", "b"}},
		{"Sort by creation ascending", "?sort=created&order=asc", []string{"a", "b", "c"}},
		{"Sort by creation descending", "?sort=created", []string{"c", "b", "a"}},
		{"Limit", "?sort=created&order=asc&limit=2", []string{"a", "b"}},
		{"Invalid limit ignored", "?limit=zero", []string{"a", "c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(tt.expected) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expected), resp.Count)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "100001" {
				return nil, session.ErrSessionNotFound
			}
			return &service.SessionInfo{
				ID:      sessionID,
				Kind:    "chess",
				Members: 1,
				Players: []player.Info{{PlayerID: 1, DisplayName: "Player 1"}},
				State:   state.Document{"turn": 1},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions/100001", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.Members != 1 || len(resp.Players) != 1 {
		t.Errorf("Expected one member, got %+v", resp)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/999999", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	mockService := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("DELETE", "/api/sessions/lobby", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if deleted != "lobby" {
		t.Errorf("Expected lobby to be deleted, got %q", deleted)
	}

	w = serve(server, makeRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestClearSessions(t *testing.T) {
	mockService := &MockGameService{
		ClearSessionsFunc: func(ctx context.Context) (int, error) { return 3, nil },
	}

	w := serve(setupTestServer(mockService), makeRequest("DELETE", "/api/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]int
	parseResponse(t, w, &resp)
	if resp["cleared"] != 3 {
		t.Errorf("Expected 3 cleared, got %d", resp["cleared"])
	}
}

func TestGetSessionState(t *testing.T) {
	mockService := &MockGameService{
		GetSessionStateFunc: func(ctx context.Context, sessionID string) (state.Document, error) {
			return state.Document{"board": []interface{}{"x", "o"}}, nil
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions/100001/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"board\":[\"x\",\"o\"]}\n" {
		t.Errorf("Unexpected body %s", got)
	}
}

func TestListKinds(t *testing.T) {
	mockService := &MockGameService{
		ListKindsFunc: func(ctx context.Context) (*service.KindsInfo, error) {
			return &service.KindsInfo{
				DefaultKind: "chess",
				Restricted:  true,
				Kinds:       []config.Kind{{Name: "chess"}, {Name: "go"}},
			}, nil
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("GET", "/api/kinds", nil))
	var resp service.KindsInfo
	parseResponse(t, w, &resp)
	if resp.DefaultKind != "chess" || len(resp.Kinds) != 2 {
		t.Errorf("Unexpected kinds %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mockService := &MockGameService{
			StatsFunc: func(ctx context.Context) (*engine.Stats, error) {
				return &engine.Stats{Sessions: 2, Players: 5}, nil
			},
		}
		w := serve(setupTestServer(mockService), makeRequest("GET", "/api/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp map[string]interface{}
		parseResponse(t, w, &resp)
		if resp["status"] != "healthy" || resp["players"] != float64(5) {
			t.Errorf("Unexpected health %v", resp)
		}
	})

	t.Run("engine stopped", func(t *testing.T) {
		mockService := &MockGameService{
			StatsFunc: func(ctx context.Context) (*engine.Stats, error) {
				return nil, engine.ErrStopped
			},
		}
		w := serve(setupTestServer(mockService), makeRequest("GET", "/api/health", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestOptionalRoutes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>lobby</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sessions_active 0\n"))
	})

	bare := setupTestServer(&MockGameService{})
	if w := serve(bare, makeRequest("GET", "/metrics", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected /metrics to be absent, got %d", w.Code)
	}

	full := setupTestServer(&MockGameService{}, WithMetrics(metrics), WithStaticDir(dir))

	w := serve(full, makeRequest("GET", "/metrics", nil))
	if w.Body.String() != "sessions_active 0\n" {
		t.Errorf("Unexpected metrics body %q", w.Body.String())
	}

	w = serve(full, makeRequest("GET", "/", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("lobby")) {
		t.Errorf("Expected index.html, got %d %q", w.Code, w.Body.String())
	}

	w = serve(full, makeRequest("GET", "/ws", nil))
	if w.Code != http.StatusSwitchingProtocols {
		t.Errorf("Expected /ws to reach the websocket handler, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{gameerr.New(gameerr.ErrInvalidArgument, "x"), http.StatusBadRequest},
		{session.ErrSessionNotFound, http.StatusNotFound},
		{session.ErrSessionAlreadyExists, http.StatusConflict},
		{gameerr.New(gameerr.ErrAlreadyRegistered, "x"), http.StatusConflict},
		{gameerr.New(gameerr.ErrAllocationExhausted, "x"), http.StatusServiceUnavailable},
		{gameerr.New(gameerr.ErrInternalInconsistency, "x"), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
