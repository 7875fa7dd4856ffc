package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/core"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/search"
	"github.com/avior/policyvault/internal/store"
)

// Config holds the tunable parts of the HTTP handler.
type Config struct {
	Tokens            TokenStore
	RequestsPerMinute int
	MaxBodyBytes      int64
	WebhookURLs       []string
}

// handler bundles the resources every endpoint needs.
type handler struct {
	store    *store.Store
	audit    *audit.Ledger
	search   search.ClientInterface
	logger   *slog.Logger
	webhooks *WebhookNotifier
}

// NewHandler builds the full HTTP handler with middleware applied. The
// returned stop function releases background resources (rate limiter,
// in-flight webhook deliveries) and should be called during shutdown.
func NewHandler(st *store.Store, aud *audit.Ledger, idx search.ClientInterface, logger *slog.Logger, cfg Config) (http.Handler, func()) {
	h := &handler{
		store:    st,
		audit:    aud,
		search:   idx,
		logger:   logger,
		webhooks: NewWebhookNotifier(cfg.WebhookURLs, logger),
	}

	limiter := newRateLimiter(cfg.RequestsPerMinute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/documents", h.listDocuments)
	mux.Handle("POST /api/v1/documents", requireWrite(http.HandlerFunc(h.createDocument)))
	mux.HandleFunc("GET /api/v1/documents/{id}", h.getDocument)
	mux.Handle("PATCH /api/v1/documents/{id}", requireWrite(http.HandlerFunc(h.patchDocument)))
	mux.Handle("POST /api/v1/documents/{id}/transition", requireWrite(http.HandlerFunc(h.transition)))
	mux.HandleFunc("GET /api/v1/documents/{id}/snapshots", h.listSnapshots)
	mux.HandleFunc("GET /api/v1/documents/{id}/snapshots/{snapshotID}", h.getSnapshot)
	mux.Handle("POST /api/v1/documents/{id}/rollback", requireWrite(http.HandlerFunc(h.rollback)))
	mux.HandleFunc("GET /api/v1/documents/{id}/audit", h.documentAudit)
	mux.HandleFunc("GET /api/v1/documents/{id}/acknowledgments", h.listAcknowledgments)
	mux.Handle("POST /api/v1/documents/{id}/acknowledgments", requireWrite(http.HandlerFunc(h.acknowledge)))
	mux.HandleFunc("GET /api/v1/users/{userID}/pending", h.pendingForUser)
	mux.HandleFunc("GET /api/v1/categories", h.listCategories)
	mux.HandleFunc("GET /api/v1/search", h.searchDocuments)

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	api := applyMiddleware(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
		authMiddleware(cfg.Tokens),
		limiter.middleware,
		bodyLimitMiddleware(maxBody),
	)

	// Health endpoints bypass auth and rate limiting.
	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", h.healthz)
	root.HandleFunc("GET /readyz", h.readyz)
	root.Handle("/api/v1/", api)

	stop := func() {
		limiter.Stop()
		h.webhooks.Wait()
	}
	return root, stop
}

func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// -- health --

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ListCategories(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// -- documents --

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DocumentFilter{
		CategoryID: q.Get("category"),
		Kind:       q.Get("kind"),
	}
	if s := q.Get("status"); s != "" {
		status := models.Status(s)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", fmt.Sprintf("unknown status %q", s))
			return
		}
		filter.Status = status
	}
	if v := q.Get("requires_ack"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", "requires_ack must be a boolean")
			return
		}
		filter.RequiresAck = b
	}

	docs, err := h.store.ListDocuments(filter)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

type createDocumentRequest struct {
	Kind        string           `json:"kind"`
	Category    string           `json:"category"`
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Sections    []models.Section `json:"sections"`
	Owner       string           `json:"owner"`
	ViewRoles   []string         `json:"view_roles"`
	AckRoles    []string         `json:"ack_roles"`
	RequiresAck bool             `json:"requires_ack"`
	Actor       string           `json:"actor"`
}

func (h *handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	doc, err := core.CreateDocument(r.Context(), h.store, h.audit, core.CreateParams{
		Kind:        req.Kind,
		CategoryID:  req.Category,
		Number:      req.Number,
		Title:       req.Title,
		Description: req.Description,
		Sections:    req.Sections,
		OwnerID:     req.Owner,
		ViewRoles:   req.ViewRoles,
		AckRoles:    req.AckRoles,
		RequiresAck: req.RequiresAck,
		ActorID:     h.actor(r, req.Actor),
	})
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	h.indexDocument(r.Context(), doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type patchDocumentRequest struct {
	Title            *string           `json:"title"`
	Description      *string           `json:"description"`
	Sections         *[]models.Section `json:"sections"`
	Owner            *string           `json:"owner"`
	ViewRoles        *[]string         `json:"view_roles"`
	AckRoles         *[]string         `json:"ack_roles"`
	RequiresAck      *bool             `json:"requires_ack"`
	Status           *string           `json:"status"`
	CreateNewVersion bool              `json:"create_new_version"`
	VersionType      string            `json:"version_type"`
	Note             string            `json:"note"`
	Actor            string            `json:"actor"`
}

func (h *handler) patchDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	var req patchDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	// Lifecycle status only moves through the transition endpoint.
	if req.Status != nil {
		h.coreError(w, r, fmt.Errorf("%w: patch %s via /transition", core.ErrStatusImmutable, doc.Ref()))
		return
	}

	fields := core.Fields{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     req.Owner,
		RequiresAck: req.RequiresAck,
	}
	if req.Sections != nil {
		fields.Sections = *req.Sections
	}
	if req.ViewRoles != nil {
		fields.ViewRoles = *req.ViewRoles
	}
	if req.AckRoles != nil {
		fields.AckRoles = *req.AckRoles
	}

	versionType := req.VersionType
	if versionType == "" {
		versionType = core.VersionTypeMinor
	}
	if versionType != core.VersionTypeMinor && versionType != core.VersionTypeMajor {
		writeError(w, http.StatusBadRequest, "invalid_version_type",
			fmt.Sprintf("version_type must be %q or %q", core.VersionTypeMinor, core.VersionTypeMajor))
		return
	}

	prevVersion := doc.Version
	updated, err := core.UpdateDocument(r.Context(), h.store, h.audit, doc.ID, fields, core.UpdateOptions{
		CreateNewVersion: req.CreateNewVersion,
		VersionType:      versionType,
		Note:             req.Note,
		ActorID:          h.actor(r, req.Actor),
	})
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	if updated.Version != prevVersion {
		h.webhooks.Notify(EventVersionAdvanced, updated, h.actor(r, req.Actor))
	}
	h.indexDocument(r.Context(), updated)
	writeJSON(w, http.StatusOK, updated)
}

type transitionRequest struct {
	Transition string `json:"transition"`
	Actor      string `json:"actor"`
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	t, err := core.ParseTransition(req.Transition)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
		return
	}

	actor := h.actor(r, req.Actor)
	updated, err := core.ApplyTransition(r.Context(), h.store, h.audit, doc.ID, t, actor)
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	switch t {
	case core.TransitionApprove:
		h.webhooks.Notify(EventApproved, updated, actor)
	case core.TransitionRetire:
		h.webhooks.Notify(EventRetired, updated, actor)
	}

	// Retired documents drop out of the library search index.
	if t == core.TransitionRetire {
		h.removeFromIndex(r.Context(), updated.ID)
	} else {
		h.indexDocument(r.Context(), updated)
	}
	writeJSON(w, http.StatusOK, updated)
}

// -- snapshots and rollback --

func (h *handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	snaps, err := core.ListSnapshots(h.store, doc.ID)
	if err != nil {
		h.coreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	snap, err := core.GetSnapshot(h.store, r.PathValue("snapshotID"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}
	if snap.DocumentID != doc.ID {
		writeError(w, http.StatusNotFound, "not_found", "snapshot does not belong to this document")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type rollbackRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Actor      string `json:"actor"`
}

func (h *handler) rollback(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	var req rollbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.SnapshotID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "snapshot_id is required")
		return
	}

	actor := h.actor(r, req.Actor)
	updated, err := core.RollbackToVersion(r.Context(), h.store, h.audit, doc.ID, req.SnapshotID, actor)
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	h.webhooks.Notify(EventRolledBack, updated, actor)
	h.indexDocument(r.Context(), updated)
	writeJSON(w, http.StatusOK, updated)
}

// -- audit --

func (h *handler) documentAudit(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	entries, err := h.audit.ByDocument(doc.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// -- acknowledgments --

func (h *handler) listAcknowledgments(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	acks, err := h.store.ListDocumentAcknowledgments(doc.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"acknowledgments": acks, "count": len(acks)})
}

type acknowledgeRequest struct {
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	Method     string     `json:"method"`
	Version    string     `json:"version"`
	ExpiresAt  *time.Time `json:"expires_at"`
	NoExpiry   bool       `json:"no_expiry"`
	ExpiryDays int        `json:"expiry_days"`
}

func (h *handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	doc, err := h.resolveDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.coreError(w, r, err)
		return
	}

	var req acknowledgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	opts := core.AckOptions{
		Method:   req.Method,
		NoExpiry: req.NoExpiry,
		Role:     req.Role,
	}
	if req.ExpiresAt != nil {
		opts.ExpiresAt = *req.ExpiresAt
	} else if req.ExpiryDays > 0 {
		opts.ExpiresAt = time.Now().UTC().Add(time.Duration(req.ExpiryDays) * 24 * time.Hour)
	}

	ack, err := core.RecordAcknowledgment(r.Context(), h.store, h.audit, doc.ID, req.Version, req.UserID, opts)
	if err != nil {
		h.coreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ack)
}

func (h *handler) pendingForUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	role := r.URL.Query().Get("role")

	pending, err := core.PendingAcknowledgments(h.store, userID, role)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending, "count": len(pending)})
}

// -- categories --

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats, "count": len(cats)})
}

// -- search --

func (h *handler) searchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter q is required")
		return
	}
	if h.search == nil {
		writeError(w, http.StatusServiceUnavailable, "search_unavailable", "search index is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.search.Search(r.Context(), query, limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// -- helpers --

// resolveDocument accepts either a document UUID or a "CATEGORY-NUMBER"
// reference like RPAS-1001.
func (h *handler) resolveDocument(ctx context.Context, ref string) (*models.Document, error) {
	if i := strings.LastIndex(ref, "-"); i > 0 {
		if num, err := strconv.Atoi(ref[i+1:]); err == nil {
			doc, err := h.store.GetDocumentByNumber(ref[:i], num)
			if err == nil {
				return doc, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}
	return h.store.GetDocument(ref)
}

// indexDocument updates the search index best-effort.
func (h *handler) indexDocument(ctx context.Context, doc *models.Document) {
	if h.search == nil {
		return
	}
	if err := h.search.IndexDocument(ctx, doc); err != nil {
		h.logger.Warn("search index update failed", "document", doc.Ref(), "error", err)
	}
}

// removeFromIndex drops a document from the search index, best-effort.
func (h *handler) removeFromIndex(ctx context.Context, documentID string) {
	if h.search == nil {
		return
	}
	if err := h.search.RemoveDocument(ctx, documentID); err != nil {
		h.logger.Warn("search index removal failed", "document_id", documentID, "error", err)
	}
}

// actor prefers the explicit actor from the request body, falling back to
// the authenticated token ID.
func (h *handler) actor(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if id, _ := r.Context().Value(contextKeyTokenID).(string); id != "" {
		return id
	}
	return "unknown"
}

func (h *handler) coreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, core.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, core.ErrRangeExhausted):
		writeError(w, http.StatusConflict, "range_exhausted", err.Error())
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, core.ErrStatusImmutable):
		writeError(w, http.StatusUnprocessableEntity, "status_immutable", err.Error())
	case errors.Is(err, core.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, core.ErrPreconditionFailed):
		writeError(w, http.StatusPreconditionFailed, "precondition_failed", err.Error())
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := r.Context().Value(contextKeyRequestID).(string)
	h.logger.Error("internal error", "path", r.URL.Path, "error", err, "request_id", reqID)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid request body: %v", err))
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
