package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/httputil"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/permissions"
)

// SessionHandler handles collection session endpoints
type SessionHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(svc *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the session endpoints. The router must run behind
// httputil.Authenticate.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	read := httputil.RequirePermission(permissions.SessionsRead)
	write := httputil.RequirePermission(permissions.SessionsWrite)

	r.With(read).Get("/", h.List)
	r.With(write).Post("/", h.Create)
	r.With(read).Get("/stats", h.Stats)

	r.Route("/{id}", func(r chi.Router) {
		r.With(read).Get("/", h.Get)
		r.With(httputil.RequirePermission(permissions.SessionsDelete)).Delete("/", h.Delete)
		r.With(httputil.RequirePermission(permissions.SessionsTransition)).Post("/transition", h.Transition)

		r.With(write).Put("/collection-data", h.UpdateCollectionData)
		r.With(write).Put("/paper-types/{type}", h.UpdatePaperType)
		r.With(write).Put("/actual-amount", h.UpdateActualAmount)

		r.With(httputil.RequirePermission(permissions.ProblemsReport)).Post("/problems", h.ReportProblem)
		r.With(httputil.RequirePermission(permissions.ProblemsResolve)).Post("/problems/{problemId}/resolve", h.ResolveProblem)
		r.With(httputil.RequirePermission(permissions.CommentsWrite, permissions.SessionsWrite)).Post("/comments", h.AddComment)
	})

	return r
}

// SessionResult is returned by operations that may raise warnings
type SessionResult struct {
	Session  *domain.CollectionSession `json:"session"`
	Warnings []domain.Warning          `json:"warnings"`
}

func result(s *domain.CollectionSession, warnings []domain.Warning) SessionResult {
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return SessionResult{Session: s, Warnings: warnings}
}

func requestActor(r *http.Request) (actor.Actor, error) {
	a, ok := httputil.GetActor(r.Context())
	if !ok {
		return actor.Actor{}, errors.Unauthorized("authentication required")
	}
	return a, nil
}

// decode reads the body into req and runs its validate tags
func decode(w http.ResponseWriter, r *http.Request, req interface{}) error {
	if err := httputil.DecodeJSON(w, r, req); err != nil {
		return err
	}
	return httputil.Validate(req)
}

// List lists sessions newest first
// GET /?status=&supplier_id=&coordinator_id=&page=&per_page=
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := service.ListFilter{
		SupplierID:    q.Get("supplier_id"),
		CoordinatorID: q.Get("coordinator_id"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		filter.Status = status
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	sessions, err := h.service.ListSessions(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	total := len(sessions)
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	// pages past the end are empty; clamping first keeps the offset in range
	start := total
	if page <= totalPages {
		start = (page - 1) * perPage
	}
	end := min(start+perPage, total)

	items := sessions[start:end]
	if items == nil {
		items = []*domain.CollectionSession{}
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Stats returns aggregate figures over all sessions
// GET /stats
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// Get gets a session by ID
// GET /{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// Create plans a new session
// POST /
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var in domain.CreateSessionInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.CreateSession(r.Context(), in, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, session)
}

// Delete removes a session
// DELETE /{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id"), by); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// TransitionRequest moves a session to a new status, optionally saving
// collection data in the same write
type TransitionRequest struct {
	Status         string                       `json:"status" validate:"required"`
	CollectionData *domain.CollectionDataUpdate `json:"collection_data,omitempty"`
}

// Transition changes the session status
// POST /{id}/transition
func (h *SessionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req TransitionRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var opts []service.TransitionOption
	if req.CollectionData != nil {
		opts = append(opts, service.WithCollectionData(*req.CollectionData))
	}

	session, warnings, err := h.service.TransitionSession(r.Context(), chi.URLParam(r, "id"), target, by, opts...)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result(session, warnings))
}

// UpdateCollectionData saves collected amounts
// PUT /{id}/collection-data
func (h *SessionHandler) UpdateCollectionData(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var update domain.CollectionDataUpdate
	if err := httputil.DecodeJSON(w, r, &update); err != nil {
		httputil.Error(w, err)
		return
	}

	session, warnings, err := h.service.UpdateCollectionData(r.Context(), chi.URLParam(r, "id"), update, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result(session, warnings))
}

// QuantityRequest carries a single quantity
type QuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gte=0"`
}

// UpdatePaperType replaces one paper-type bucket
// PUT /{id}/paper-types/{type}
func (h *SessionHandler) UpdatePaperType(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	paperType, err := domain.ParsePaperType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req QuantityRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.UpdatePaperType(r.Context(), chi.URLParam(r, "id"), paperType, *req.Quantity, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// UpdateActualAmount records the weighed total
// PUT /{id}/actual-amount
func (h *SessionHandler) UpdateActualAmount(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req QuantityRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.UpdateActualAmount(r.Context(), chi.URLParam(r, "id"), *req.Quantity, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// ReportProblemRequest opens a problem report
type ReportProblemRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
	Priority    string `json:"priority" validate:"required"`
}

// ReportProblem opens a problem on the session
// POST /{id}/problems
func (h *SessionHandler) ReportProblem(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ReportProblemRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.ReportProblem(r.Context(), chi.URLParam(r, "id"), req.Description, domain.ProblemPriority(req.Priority), by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, session)
}

// ResolveProblemRequest closes a problem report
type ResolveProblemRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

// ResolveProblem resolves an open problem
// POST /{id}/problems/{problemId}/resolve
func (h *SessionHandler) ResolveProblem(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ResolveProblemRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.ResolveProblem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "problemId"), req.Resolution, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// AddCommentRequest appends a comment
type AddCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=4000"`
	Type    string `json:"type" validate:"omitempty,max=50"`
}

// AddComment appends a comment to the session
// POST /{id}/comments
func (h *SessionHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	by, err := requestActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req AddCommentRequest
	if err := decode(w, r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req.Comment, req.Type, by)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, session)
}
