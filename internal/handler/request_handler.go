package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/studioworks/backend/internal/model"
	"github.com/studioworks/backend/internal/repository"
	"github.com/studioworks/backend/internal/service"
	"github.com/studioworks/backend/pkg/auth"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a
// submission with a full-length message.
const maxBodyBytes = 64 << 10

// RequestHandler serves the public submission endpoint and the admin
// dashboard endpoints for contact-form requests.
type RequestHandler struct {
	requests  service.RequestService
	lifecycle service.LifecycleService
}

// NewRequestHandler creates a RequestHandler with the given services.
func NewRequestHandler(requests service.RequestService, lifecycle service.LifecycleService) *RequestHandler {
	return &RequestHandler{requests: requests, lifecycle: lifecycle}
}

// submitRequest is the expected JSON body for POST /api/requests.
type submitRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Company  string   `json:"company"`
	Services []string `json:"services"`
	Budget   string   `json:"budget"`
	Message  string   `json:"message"`
}

// Submit handles POST /api/requests. name and email are required.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.requests.Submit(r.Context(), model.RequestInput{
		Name:     body.Name,
		Email:    body.Email,
		Company:  body.Company,
		Services: body.Services,
		Budget:   model.Budget(body.Budget),
		Message:  body.Message,
	})
	if err != nil {
		writeServiceError(w, "submit request", err)
		return
	}

	slog.Info("request submitted", "inquiry_id", req.ID, "request_id", RequestIDFromContext(r.Context()))
	writeData(w, http.StatusCreated, req)
}

type stageOption struct {
	Status model.Status `json:"status"`
	Index  int          `json:"index"`
}

type optionsResponse struct {
	Stages   []stageOption  `json:"stages"`
	Statuses []model.Status `json:"statuses"`
	Budgets  []model.Budget `json:"budgets"`
}

// Options handles GET /api/requests/options: the value sets the contact form
// and the dashboard render from.
func (h *RequestHandler) Options(w http.ResponseWriter, r *http.Request) {
	stages := model.Stages()
	resp := optionsResponse{
		Stages:   make([]stageOption, 0, len(stages)),
		Statuses: model.Statuses(),
		Budgets:  model.Budgets(),
	}
	for _, st := range stages {
		resp.Stages = append(resp.Stages, stageOption{Status: st, Index: st.StageIndex()})
	}
	writeData(w, http.StatusOK, resp)
}

// List handles GET /api/admin/requests. Archived requests are excluded
// unless include_archived=true; status narrows to a single status.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	q := r.URL.Query()
	var opts model.RequestListOptions
	if v := q.Get("include_archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeServiceError(w, "list requests", &model.ValidationError{Field: "include_archived", Code: "invalid_include_archived"})
			return
		}
		opts.IncludeArchived = b
	}
	if v := q.Get("status"); v != "" {
		st, err := model.ParseStatus(v)
		if err != nil {
			writeServiceError(w, "list requests", err)
			return
		}
		opts.Status = st
	}

	requests, err := h.requests.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, "list requests", err)
		return
	}
	if requests == nil {
		requests = []*model.Request{}
	}
	writeData(w, http.StatusOK, requests)
}

// Summary handles GET /api/admin/requests/summary.
func (h *RequestHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	summary, err := h.requests.Summary(r.Context())
	if err != nil {
		writeServiceError(w, "summarize requests", err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// Get handles GET /api/admin/requests/{id}.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	req, err := h.requests.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get request", err)
		return
	}
	writeData(w, http.StatusOK, req)
}

type patchRequest struct {
	Status string `json:"status"`
}

// patchResponse carries the updated record plus what the dashboard needs to
// reconcile its list without refetching.
type patchResponse struct {
	Data           *model.Request `json:"data"`
	PreviousStatus model.Status   `json:"previous_status"`
	LeftActiveList bool           `json:"left_active_list"`
}

// PatchStatus handles PATCH /api/admin/requests/{id} with body {status}.
// Every failure is logged with the inquiry id, HTTP request id, target and operator.
func (h *RequestHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	op, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	var body patchRequest
	if !decodeBody(w, r, &body) {
		slog.Warn("status transition rejected",
			"inquiry_id", id,
			"request_id", RequestIDFromContext(r.Context()),
			"operator", op.Email,
			"error", "invalid_json",
		)
		return
	}

	res, err := h.lifecycle.Transition(r.Context(), op.Email, id, body.Status)
	if err != nil {
		slog.Warn("status transition failed",
			"inquiry_id", id,
			"request_id", RequestIDFromContext(r.Context()),
			"target", body.Status,
			"operator", op.Email,
			"error", err,
		)
		writeServiceError(w, "transition request", err)
		return
	}

	slog.Info("status transition applied",
		"inquiry_id", id,
		"request_id", RequestIDFromContext(r.Context()),
		"from", res.From,
		"to", res.Request.Status,
		"operator", op.Email,
	)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patchResponse{
		Data:           res.Request,
		PreviousStatus: res.From,
		LeftActiveList: res.LeftActiveList,
	})
}

// History handles GET /api/admin/requests/{id}/history.
func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	events, err := h.lifecycle.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "request history", err)
		return
	}
	if events == nil {
		events = []*model.StatusEvent{}
	}
	writeData(w, http.StatusOK, events)
}

// Delete handles DELETE /api/admin/requests/{id}.
func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	op, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.requests.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete request", err)
		return
	}
	slog.Info("request deleted", "inquiry_id", id, "request_id", RequestIDFromContext(r.Context()), "operator", op.Email)
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin writes 401 or 403 and returns false unless the request
// carries an allow-listed operator.
func requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Operator, bool) {
	op, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Operator{}, false
	}
	if !auth.IsAdminFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return auth.Operator{}, false
	}
	return op, true
}

// decodeBody decodes a size-limited JSON body into v, writing 400 invalid_json on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// writeServiceError maps service and repository errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *model.ValidationError
	var se *repository.StorageError
	switch {
	case errors.As(err, &ve):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": ve.Code, "field": ve.Field})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.As(err, &se):
		slog.Error(op+" failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
	default:
		slog.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
