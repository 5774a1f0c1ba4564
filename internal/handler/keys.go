package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quartzbi/quartz/internal/model"
	"github.com/quartzbi/quartz/internal/server/middleware"
	"github.com/quartzbi/quartz/internal/service"
)

// APIKeyHandler exposes the key lifecycle over HTTP. Every route requires an
// admin session; the session's admin is the owner of the keys it manages.
type APIKeyHandler struct {
	keys *service.KeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *service.KeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

func ownerID(r *http.Request) int64 {
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		return p.AdminID
	}
	return 0
}

// List returns the caller's keys, newest first. The optional q parameter
// filters by name or description substring without touching the stored list;
// include_inactive=true includes deactivated keys.
// GET /api/v1/system/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context(), ownerID(r), queryBool(r, "include_inactive"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	keys = service.FilterKeys(keys, queryString(r, "q"))

	resources := make([]map[string]interface{}, 0, len(keys))
	for i := range keys {
		resources = append(resources, keyToMap(&keys[i]))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta: &model.ResponseMeta{
			Count: len(resources),
		},
	})
}

// Create generates a new API key and returns the plaintext exactly once.
// Retrying a failed create always mints a fresh key; there is no request
// deduplication on purpose.
// POST /api/v1/system/api-keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.APIKeyDraft
	if err := readJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.keys.Create(r.Context(), ownerID(r), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Get returns a single key. The secret is not recoverable; only the display
// prefix is included.
// GET /api/v1/system/api-keys/{keyID}
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Get(r.Context(), ownerID(r), chi.URLParam(r, "keyID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyToMap(key))
}

// Update applies a partial patch to the key's name, description, scopes, and
// rate limits. Omitted fields are left unchanged.
// PATCH /api/v1/system/api-keys/{keyID}
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.APIKeyPatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	key, err := h.keys.Update(r.Context(), ownerID(r), chi.URLParam(r, "keyID"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyToMap(key))
}

// Delete permanently removes a key and its usage history.
// DELETE /api/v1/system/api-keys/{keyID}
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Delete(r.Context(), ownerID(r), chi.URLParam(r, "keyID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key deleted",
	})
}

// Rotate replaces the key's secret in place and returns the new plaintext
// exactly once. The old secret stops working immediately.
// POST /api/v1/system/api-keys/{keyID}/rotate
func (h *APIKeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	rotated, err := h.keys.Rotate(r.Context(), ownerID(r), chi.URLParam(r, "keyID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rotated)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetActive activates or deactivates a key. Setting the current state is a
// successful no-op.
// PUT /api/v1/system/api-keys/{keyID}/active
func (h *APIKeyHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	key, err := h.keys.SetActive(r.Context(), ownerID(r), chi.URLParam(r, "keyID"), *req.IsActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyToMap(key))
}

// Usage returns the key's request statistics: totals, windowed counts,
// average latency, error rate, and the most used endpoints.
// GET /api/v1/system/api-keys/{keyID}/usage
func (h *APIKeyHandler) Usage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.keys.GetUsage(r.Context(), ownerID(r), chi.URLParam(r, "keyID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListScopes returns the scope catalog grouped by category, in catalog order.
// GET /api/v1/system/scopes
func (h *APIKeyHandler) ListScopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.keys.Scopes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scopes":     scopes,
		"categories": model.GroupScopesByCategory(scopes),
	})
}

type toggleScopesRequest struct {
	Selected []string `json:"selected"`
	Category string   `json:"category"`
}

// ToggleScopeCategory computes a category-level select/deselect over a scope
// selection: if every scope in the category is already selected they are all
// removed, otherwise the whole category is added. Applying it twice returns
// the original selection. Pure computation; nothing is persisted.
// POST /api/v1/system/scopes/toggle
func (h *APIKeyHandler) ToggleScopeCategory(w http.ResponseWriter, r *http.Request) {
	var req toggleScopesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	catalog, err := h.keys.Scopes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected": model.ToggleCategory(req.Selected, catalog, req.Category),
	})
}

// keyToMap serializes a key for API responses. The hash never leaves the
// store layer; the plaintext only ever appears in create/rotate responses.
func keyToMap(key *model.APIKey) map[string]interface{} {
	m := map[string]interface{}{
		"id":                    key.ID,
		"name":                  key.Name,
		"description":           key.Description,
		"key_prefix":            key.KeyPrefix,
		"scopes":                key.Scopes,
		"rate_limit_per_minute": key.RateLimitPerMinute,
		"rate_limit_per_hour":   key.RateLimitPerHour,
		"rate_limit_per_day":    key.RateLimitPerDay,
		"is_active":             key.IsActive,
		"request_count":         key.RequestCount,
		"created_at":            key.CreatedAt,
		"updated_at":            key.UpdatedAt,
	}
	if key.ExpiresAt != nil {
		m["expires_at"] = key.ExpiresAt
	}
	if key.LastUsedAt != nil {
		m["last_used_at"] = key.LastUsedAt
	}
	return m
}
