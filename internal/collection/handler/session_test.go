package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/handler"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/auth"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/httputil"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/permissions"
	"github.com/paperloop/paperloop-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basePath = "/api/v1/collection/sessions"

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *httputil.ErrorBody `json:"error"`
	Meta    *httputil.Meta      `json:"meta"`
}

type testServer struct {
	router  http.Handler
	tokens  *auth.Manager
	factory *testutil.FixtureFactory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return testutil.FixtureTime }
	repo := repository.NewMemorySessionRepository(clock)
	svc := service.NewSessionService(repo,
		service.WithClock(clock),
		service.WithNumberGenerator(&service.SequentialNumberGenerator{}),
	)

	tokens := auth.NewManager(&config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour, Issuer: "paperloop"})

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Authenticate(tokens, logger.Nop()))
	r.Mount(basePath, handler.NewSessionHandler(svc, logger.Nop()).Routes())

	return &testServer{router: r, tokens: tokens, factory: testutil.NewFixtureFactory()}
}

func (s *testServer) token(t *testing.T, a actor.Actor) string {
	t.Helper()
	token, _, err := s.tokens.Issue(a)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, a actor.Actor, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	req := testutil.WithBearerToken(testutil.NewHTTPRequest(method, path, body), s.token(t, a))
	rr := testutil.ExecuteRequest(s.router, req)

	var env envelope
	if rr.Body.Len() > 0 {
		testutil.ParseJSONBody(t, rr, &env)
	}
	return rr.Code, env
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

func (s *testServer) createSession(t *testing.T, by actor.Actor) domain.CollectionSession {
	t.Helper()
	code, env := s.do(t, by, http.MethodPost, basePath, s.factory.SessionInput(by))
	require.Equal(t, http.StatusCreated, code, env.Error)

	var session domain.CollectionSession
	decodeData(t, env, &session)
	return session
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	coordinator := s.factory.Coordinator()

	created := s.createSession(t, coordinator)
	assert.Equal(t, domain.StatusPlanned, created.Status)
	assert.Equal(t, "CS-20260302-000001", created.SessionNumber)
	assert.Equal(t, coordinator.ID, created.CreatedBy)

	code, env := s.do(t, coordinator, http.MethodGet, basePath+"/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var loaded domain.CollectionSession
	decodeData(t, env, &loaded)
	assert.Equal(t, created.ID, loaded.ID)

	code, env = s.do(t, coordinator, http.MethodGet, basePath+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSessionHandler_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	coordinator := s.factory.Coordinator()

	in := s.factory.SessionInput(coordinator)
	in.SupplierID = ""
	code, env := s.do(t, coordinator, http.MethodPost, basePath, in)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Details, "supplier_id")

	code, _ = s.do(t, coordinator, http.MethodPost, basePath, `{"unknown_field": 1}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSessionHandler_Permissions(t *testing.T) {
	s := newTestServer(t)
	coordinator := s.factory.Coordinator()
	created := s.createSession(t, coordinator)

	viewer := actor.Actor{ID: "viewer-1", Name: "Vera Viewer", Role: permissions.RoleViewer}
	marketer := s.factory.Marketer()
	writer := actor.Actor{ID: "writer-1", Name: "Wim Writer", Permissions: []string{permissions.SessionsWrite}}
	reader := actor.Actor{ID: "reader-1", Name: "Rita Reader", Permissions: []string{permissions.SessionsRead}}

	tests := []struct {
		name   string
		by     actor.Actor
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"viewer reads", viewer, http.MethodGet, basePath, nil, http.StatusOK},
		{"viewer cannot create", viewer, http.MethodPost, basePath, s.factory.SessionInput(coordinator), http.StatusForbidden},
		{"marketer cannot transition", marketer, http.MethodPost, basePath + "/" + created.ID + "/transition", map[string]string{"status": "in-progress"}, http.StatusForbidden},
		{"marketer comments", marketer, http.MethodPost, basePath + "/" + created.ID + "/comments", map[string]string{"comment": "called supplier"}, http.StatusCreated},
		{"coordinator cannot delete", coordinator, http.MethodDelete, basePath + "/" + created.ID, nil, http.StatusForbidden},
		{"session writer comments", writer, http.MethodPost, basePath + "/" + created.ID + "/comments", map[string]string{"comment": "scale recalibrated"}, http.StatusCreated},
		{"reader cannot comment", reader, http.MethodPost, basePath + "/" + created.ID + "/comments", map[string]string{"comment": "hello"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, tt.by, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code, env.Error)
		})
	}

	rr := testutil.ExecuteRequest(s.router, testutil.NewHTTPRequest(http.MethodGet, basePath, nil))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	coordinator := s.factory.Coordinator()
	manager := s.factory.Manager()
	created := s.createSession(t, coordinator)
	path := basePath + "/" + created.ID

	code, env := s.do(t, coordinator, http.MethodPost, path+"/transition", map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, coordinator, http.MethodPut, path+"/paper-types/carton", map[string]float64{"quantity": 60})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, coordinator, http.MethodPut, path+"/paper-types/cardboard", map[string]float64{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, coordinator, http.MethodPut, path+"/actual-amount", map[string]float64{"quantity": -5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Details, "quantity")

	code, env = s.do(t, coordinator, http.MethodPut, path+"/collection-data", map[string]interface{}{
		"actual_amount": 65,
		"paper_types":   map[string]float64{"carton": 60},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var withWarnings handler.SessionResult
	decodeData(t, env, &withWarnings)
	require.Len(t, withWarnings.Warnings, 1)
	assert.Equal(t, domain.WarningAmountMismatch, withWarnings.Warnings[0].Code)

	code, env = s.do(t, coordinator, http.MethodPost, path+"/problems", map[string]string{
		"description": "conveyor jammed",
		"priority":   "HIGH",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var withProblem domain.CollectionSession
	decodeData(t, env, &withProblem)
	require.Len(t, withProblem.Problems, 1)
	assert.Equal(t, domain.PriorityHigh, withProblem.Problems[0].Priority)
	problemPath := path + "/problems/" + withProblem.Problems[0].ID + "/resolve"

	code, _ = s.do(t, coordinator, http.MethodPost, problemPath, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, coordinator, http.MethodPost, problemPath, map[string]string{"resolution": "belt replaced"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, coordinator, http.MethodPost, problemPath, map[string]string{"resolution": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	code, env = s.do(t, coordinator, http.MethodPost, path+"/transition", map[string]interface{}{
		"status":          "completed",
		"collection_data": map[string]float64{"actual_amount": 90},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var done handler.SessionResult
	decodeData(t, env, &done)
	assert.Equal(t, domain.StatusCompleted, done.Session.Status)
	assert.Equal(t, 90, done.Session.Performance.Efficiency)
	assert.NotNil(t, done.Warnings)

	code, env = s.do(t, coordinator, http.MethodPost, path+"/transition", map[string]string{"status": "planned"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	code, env = s.do(t, coordinator, http.MethodPost, path+"/transition", map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, manager, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(t, manager, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSessionHandler_ListAndStats(t *testing.T) {
	s := newTestServer(t)
	coordinator := s.factory.Coordinator()
	for i := 0; i < 3; i++ {
		s.createSession(t, coordinator)
	}
	first := s.createSession(t, s.factory.Coordinator())
	code, env := s.do(t, coordinator, http.MethodPost, basePath+"/"+first.ID+"/transition", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, coordinator, http.MethodGet, basePath+"?per_page=2&page=2", nil)
	require.Equal(t, http.StatusOK, code)
	var page []domain.CollectionSession
	decodeData(t, env, &page)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(4), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	for _, query := range []string{"?per_page=2&page=3", "?per_page=50&page=9223372036854775807"} {
		code, env = s.do(t, coordinator, http.MethodGet, basePath+query, nil)
		require.Equal(t, http.StatusOK, code, query)
		var beyond []domain.CollectionSession
		decodeData(t, env, &beyond)
		assert.NotNil(t, beyond, query)
		assert.Empty(t, beyond, query)
		assert.Equal(t, int64(4), env.Meta.Total, query)
	}
	assert.Equal(t, 9223372036854775807, env.Meta.Page)
	assert.Equal(t, 50, env.Meta.PerPage)
	assert.Equal(t, 1, env.Meta.TotalPages)

	code, env = s.do(t, coordinator, http.MethodGet, basePath+"?status=cancelled", nil)
	require.Equal(t, http.StatusOK, code)
	var cancelled []domain.CollectionSession
	decodeData(t, env, &cancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	code, env = s.do(t, coordinator, http.MethodGet, basePath+"?coordinator_id="+coordinator.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []domain.CollectionSession
	decodeData(t, env, &mine)
	assert.Len(t, mine, 3)

	code, _ = s.do(t, coordinator, http.MethodGet, basePath+"?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, coordinator, http.MethodGet, basePath+"/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var stats service.SessionStats
	decodeData(t, env, &stats)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[domain.StatusPlanned])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusCancelled])
}
