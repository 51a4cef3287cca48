// Package alerts implements the /api/v1/alerts REST endpoints.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nightjar-io/nightjar/internal/api/middleware"
	"github.com/nightjar-io/nightjar/internal/metrics"
	"github.com/nightjar-io/nightjar/internal/models"
	"github.com/nightjar-io/nightjar/internal/store"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeBadCriteria   = "BAD_CRITERIA"
	errCodeNotFound      = "NOT_FOUND"
	errCodeConflict      = "CONFLICT"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// CountResponse reports how many alerts an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// Handler handles alert endpoints.
type Handler struct {
	alerts       *store.Store
	queryTimeout time.Duration
}

func NewHandler(alerts *store.Store, queryTimeout time.Duration) *Handler {
	if queryTimeout == 0 {
		queryTimeout = 10 * time.Second
	}
	return &Handler{alerts: alerts, queryTimeout: queryTimeout}
}

func (h *Handler) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.queryTimeout)
}

// singleTenant extracts the request tenant for write operations, which
// act on exactly one tenant.
func singleTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenants := middleware.TenantsFromContext(r.Context())
	if len(tenants) != 1 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest,
			"write operations require exactly one tenant in "+middleware.TenantHeader)
		return "", false
	}
	return tenants[0], true
}

// writeCriteriaError maps store errors from a criteria-driven call to an
// HTTP response.
func writeCriteriaError(w http.ResponseWriter, err error) {
	var invalid *store.InvalidCriteriaError
	if errors.As(err, &invalid) {
		metrics.TagQueryErrorsTotal.Inc()
		jsonError(w, http.StatusBadRequest, errCodeBadCriteria, invalid.Error())
		return
	}
	log.Printf("alerts query error: %v", err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// Ingest persists a batch of alerts. The body is a JSON array of alerts;
// every record is stamped with the request tenant.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}

	var batch []*models.Alert
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if len(batch) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "empty alert batch")
		return
	}
	for _, a := range batch {
		if a == nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "null alert in batch")
			return
		}
		a.TenantID = tenant
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	added, err := h.alerts.AddAlerts(ctx, batch)
	metrics.AlertsIngestedTotal.WithLabelValues(tenant).Add(float64(added))

	if err != nil {
		var dup *store.DuplicateAlertError
		if errors.As(err, &dup) {
			log.Printf("ingest for tenant %s: %d of %d added: %v", tenant, added, len(batch), err)
			jsonError(w, http.StatusConflict, errCodeConflict, err.Error())
			return
		}
		log.Printf("ingest for tenant %s failed: %v", tenant, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonCreated(w, CountResponse{Count: added})
}

// Query returns alerts matching the request criteria across all request
// tenants.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	tenants := middleware.TenantsFromContext(r.Context())

	criteria, err := parseCriteria(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadCriteria, err.Error())
		return
	}
	page, err := parsePage(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	start := time.Now()
	result, err := h.alerts.GetAlerts(ctx, tenants, criteria, page)
	if err != nil {
		writeCriteriaError(w, err)
		return
	}
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	jsonOK(w, result)
}

// Get returns a single alert by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}
	alertID := chi.URLParam(r, "alertId")

	ctx, cancel := h.queryContext(r)
	defer cancel()

	alert, err := h.alerts.GetAlert(ctx, tenant, alertID)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
			return
		}
		log.Printf("get alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, alert)
}

// DeleteByID removes a single alert.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}
	alertID := chi.URLParam(r, "alertId")

	ctx, cancel := h.queryContext(r)
	defer cancel()

	criteria := &models.AlertsCriteria{AlertIDs: []string{alertID}}
	deleted, err := h.alerts.DeleteAlerts(ctx, tenant, criteria)
	if err != nil {
		writeCriteriaError(w, err)
		return
	}
	if deleted == 0 {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}
	metrics.AlertsDeletedTotal.WithLabelValues(tenant).Add(float64(deleted))

	jsonOK(w, CountResponse{Count: deleted})
}

// Delete removes all alerts matching the request criteria.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}

	criteria, err := parseCriteria(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadCriteria, err.Error())
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	deleted, err := h.alerts.DeleteAlerts(ctx, tenant, criteria)
	if err != nil {
		writeCriteriaError(w, err)
		return
	}
	metrics.AlertsDeletedTotal.WithLabelValues(tenant).Add(float64(deleted))

	jsonOK(w, CountResponse{Count: deleted})
}

// AddTags attaches tags to the named alerts. Tags come in the
// comma-separated "name|value" form.
func (h *Handler) AddTags(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}

	ids := splitParam(r.URL.Query().Get("alertIds"))
	if len(ids) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alertIds parameter required")
		return
	}
	tags, err := parseTags(r.URL.Query().Get("tags"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	changed, err := h.alerts.AddAlertTags(ctx, tenant, ids, tags)
	if err != nil {
		log.Printf("add tags error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, CountResponse{Count: changed})
}

// RemoveTags strips the named tags from the named alerts.
func (h *Handler) RemoveTags(w http.ResponseWriter, r *http.Request) {
	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}

	ids := splitParam(r.URL.Query().Get("alertIds"))
	if len(ids) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alertIds parameter required")
		return
	}
	names := splitParam(r.URL.Query().Get("tagNames"))
	if len(names) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "tagNames parameter required")
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	changed, err := h.alerts.RemoveAlertTags(ctx, tenant, ids, names)
	if err != nil {
		log.Printf("remove tags error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, CountResponse{Count: changed})
}

// Ack acknowledges the named alerts.
func (h *Handler) Ack(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.alerts.AckAlerts)
}

// Resolve resolves the named alerts.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.alerts.ResolveAlerts)
}

// Reopen moves the named alerts back to open.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.alerts.OpenAlerts)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, tenantID string, alertIDs []string, user string) (int, error)) {

	tenant, ok := singleTenant(w, r)
	if !ok {
		return
	}

	ids := splitParam(r.URL.Query().Get("alertIds"))
	if len(ids) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alertIds parameter required")
		return
	}
	user := r.URL.Query().Get("user")

	ctx, cancel := h.queryContext(r)
	defer cancel()

	changed, err := op(ctx, tenant, ids, user)
	if err != nil {
		log.Printf("lifecycle error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, CountResponse{Count: changed})
}
