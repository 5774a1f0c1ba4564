package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/connector"
	"github.com/quartzbi/quartz/internal/model"
	"github.com/quartzbi/quartz/internal/openapi"
	"github.com/quartzbi/quartz/internal/service"
)

// SystemHandler manages the workspace's own configuration: admin accounts,
// data sources, and the admin session.
type SystemHandler struct {
	store    *config.Store
	authSvc  *service.AuthService
	registry *connector.Registry
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(store *config.Store, authSvc *service.AuthService, registry *connector.Registry) *SystemHandler {
	return &SystemHandler{
		store:    store,
		authSvc:  authSvc,
		registry: registry,
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	AdminID   int64  `json:"admin_id"`
	Email     string `json:"email"`
}

// Login authenticates an admin user and returns a JWT session token.
// POST /api/v1/system/admin/session
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ttl := 24 * time.Hour
	token, principal, err := h.authSvc.Login(r.Context(), req.Email, req.Password, ttl)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(ttl.Seconds()),
		AdminID:   principal.AdminID,
		Email:     principal.Email,
	})
}

// Logout invalidates the current session. Since JWTs are stateless, this is
// a no-op on the server side. Clients should discard their token.
// DELETE /api/v1/system/admin/session
func (h *SystemHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session invalidated",
	})
}

// ---------------------------------------------------------------------------
// Admin accounts
// ---------------------------------------------------------------------------

// ListAdmins returns all admin accounts. Password hashes never leave the
// store layer.
// GET /api/v1/system/admins
func (h *SystemHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list admins: "+err.Error())
		return
	}

	resources := make([]map[string]interface{}, 0, len(admins))
	for i := range admins {
		resources = append(resources, adminToMap(&admins[i]))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta: &model.ResponseMeta{
			Count: len(resources),
		},
	})
}

type createAdminRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// CreateAdmin registers a new admin account.
// POST /api/v1/system/admins
func (h *SystemHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	// Uniqueness check before the insert for a friendlier error.
	if _, err := h.store.GetAdminByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "Admin already exists: "+req.Email)
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password: "+err.Error())
		return
	}

	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		IsActive:     true,
		IsSuperAdmin: req.IsSuperAdmin,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create admin: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, adminToMap(admin))
}

// ---------------------------------------------------------------------------
// Data sources
// ---------------------------------------------------------------------------

// ListSources returns all configured data sources. DSNs are omitted.
// GET /api/v1/system/sources
func (h *SystemHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sources: "+err.Error())
		return
	}

	resources := make([]map[string]interface{}, 0, len(sources))
	for i := range sources {
		resources = append(resources, sourceToMap(&sources[i]))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta: &model.ResponseMeta{
			Count: len(resources),
		},
	})
}

// CreateSource registers a new data source and connects it.
// POST /api/v1/system/sources
func (h *SystemHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var src model.DataSource
	if err := readJSON(r, &src); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if src.Name == "" || src.Driver == "" || src.DSN == "" {
		writeError(w, http.StatusBadRequest, "name, driver, and dsn are required")
		return
	}
	if src.Pool == (model.PoolConfig{}) {
		src.Pool = model.DefaultPoolConfig()
	}
	src.IsActive = true
	src.DSN = connector.SanitizeDSN(src.Driver, src.DSN)

	if err := h.store.CreateSource(r.Context(), &src); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save source: "+err.Error())
		return
	}

	// Connect immediately so introspection works without a restart. A failed
	// connection keeps the stored record; TestConnection can retry later.
	if err := h.registry.Connect(src.Name, connectionConfig(&src)); err != nil {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"resource":   sourceToMap(&src),
			"connected":  false,
			"conn_error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"resource":  sourceToMap(&src),
		"connected": true,
	})
}

// GetSource returns a single data source by name.
// GET /api/v1/system/sources/{sourceName}
func (h *SystemHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	src, err := h.store.GetSourceByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Source not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load source: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sourceToMap(src))
}

// DeleteSource removes a data source and closes its connection.
// DELETE /api/v1/system/sources/{sourceName}
func (h *SystemHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	src, err := h.store.GetSourceByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Source not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load source: "+err.Error())
		return
	}

	_ = h.registry.Disconnect(name)

	if err := h.store.DeleteSource(r.Context(), src.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete source: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Source deleted",
	})
}

// TestConnection pings the source's database, reconnecting from the stored
// configuration if the live connection is missing.
// POST /api/v1/system/sources/{sourceName}/test
func (h *SystemHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")

	conn, err := h.registry.Get(name)
	if err != nil {
		// Not in registry — check if it exists in the store to give a better error.
		src, storeErr := h.store.GetSourceByName(r.Context(), name)
		if storeErr != nil {
			writeError(w, http.StatusNotFound, "Source not found: "+name)
			return
		}
		// Source exists in store but not in registry — try to reconnect it now.
		if connErr := h.registry.Connect(src.Name, connectionConfig(src)); connErr != nil {
			writeError(w, http.StatusServiceUnavailable, "Connection failed: "+connErr.Error())
			return
		}
		conn, _ = h.registry.Get(name)
	}

	if err := conn.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Ping failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Connection successful",
	})
}

// GetSourceSchema introspects the full schema of a data source: every table
// and view visible to the workspace, with columns and keys.
// GET /api/v1/system/sources/{sourceName}/schema
func (h *SystemHandler) GetSourceSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	conn, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Source not found: "+name)
		return
	}

	schema, err := conn.IntrospectSchema(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to introspect schema: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, schema)
}

// GetTableSchema returns the detailed schema for a single table or view.
// GET /api/v1/system/sources/{sourceName}/schema/{tableName}
func (h *SystemHandler) GetTableSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	tableName := chi.URLParam(r, "tableName")

	conn, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Source not found: "+name)
		return
	}

	table, err := conn.IntrospectTable(r.Context(), tableName)
	if err != nil {
		writeError(w, http.StatusNotFound, "Table not found: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, table)
}

// GetSourceSpec generates an OpenAPI document describing a source's tables
// and views, from a live schema introspection.
// GET /api/v1/system/sources/{sourceName}/openapi.json
func (h *SystemHandler) GetSourceSpec(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	conn, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Source not found: "+name)
		return
	}

	schema, err := conn.IntrospectSchema(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to introspect schema: "+err.Error())
		return
	}

	doc := openapi.GenerateSourceSpec(openapi.SourceSpec{
		Name:   name,
		Driver: conn.DriverName(),
		Schema: schema,
	}, "/")

	writeJSON(w, http.StatusOK, doc)
}

// connectionConfig maps a stored source onto connector connection parameters.
func connectionConfig(src *model.DataSource) connector.ConnectionConfig {
	return connector.ConnectionConfig{
		Driver:          src.Driver,
		DSN:             src.DSN,
		PrivateKeyPath:  src.PrivateKeyPath,
		SchemaName:      src.Schema,
		MaxOpenConns:    src.Pool.MaxOpenConns,
		MaxIdleConns:    src.Pool.MaxIdleConns,
		ConnMaxLifetime: src.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: src.Pool.ConnMaxIdleTime,
	}
}

// ---------------------------------------------------------------------------
// Serialization helpers (avoid exposing sensitive fields like DSN, password)
// ---------------------------------------------------------------------------

func sourceToMap(src *model.DataSource) map[string]interface{} {
	m := map[string]interface{}{
		"id":         src.ID,
		"name":       src.Name,
		"label":      src.Label,
		"driver":     src.Driver,
		"schema":     src.Schema,
		"read_only":  src.ReadOnly,
		"is_active":  src.IsActive,
		"created_at": src.CreatedAt,
		"updated_at": src.UpdatedAt,
	}
	if src.PrivateKeyPath != "" {
		m["private_key_path"] = src.PrivateKeyPath
	}
	return m
}

func adminToMap(admin *model.Admin) map[string]interface{} {
	m := map[string]interface{}{
		"id":             admin.ID,
		"email":          admin.Email,
		"name":           admin.Name,
		"is_active":      admin.IsActive,
		"is_super_admin": admin.IsSuperAdmin,
		"created_at":     admin.CreatedAt,
		"updated_at":     admin.UpdatedAt,
	}
	if admin.LastLoginAt != nil {
		m["last_login_at"] = admin.LastLoginAt
	}
	return m
}
