package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/quartzbi/quartz/internal/model"
)

// Handler serves the workspace API specification over HTTP. The document is
// built once on first request and cached for the lifetime of the process.
type Handler struct {
	once sync.Once
	body []byte
	err  error
}

// NewHandler creates a Handler for the built-in API spec.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeSpec writes the API spec as JSON.
func (h *Handler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.body, h.err = json.Marshal(BuildAPISpec("/"))
	})
	if h.err != nil {
		http.Error(w, `{"error":{"code":500,"message":"Failed to render API spec"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}

// BuildAPISpec generates the OpenAPI 3.1 document for the Quartz admin and
// workspace API surface.
func BuildAPISpec(baseURL string) *openapi3.T {
	doc := newDocument(
		"Quartz API",
		"Administration and workspace API for the Quartz BI server: admin sessions, data sources, API key lifecycle, and integration settings.",
		baseURL,
	)

	registerLifecycleSchemas(doc)

	addSessionPaths(doc)
	addAdminPaths(doc)
	addSourcePaths(doc)
	addKeyPaths(doc)
	addScopePaths(doc)
	addSettingsPaths(doc)
	addWorkspacePaths(doc)

	return doc
}

// SourceSpec holds the inputs needed to generate a spec for one data source.
type SourceSpec struct {
	Name   string
	Driver string
	Schema *model.SourceSchema
}

// GenerateSourceSpec generates an OpenAPI 3.1 document describing the schema
// browse surface of a single data source: one component schema per table or
// view, plus the introspection endpoints that return them.
func GenerateSourceSpec(src SourceSpec, baseURL string) *openapi3.T {
	doc := newDocument(
		fmt.Sprintf("%s source API", src.Name),
		fmt.Sprintf("Schema browse endpoints for the %s data source (%s).", src.Name, src.Driver),
		baseURL,
	)

	schemaPath := fmt.Sprintf("/api/v1/workspace/%s/schema", src.Name)

	doc.Paths.Set(schemaPath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{src.Name},
			Summary:     "Get source schema",
			Description: fmt.Sprintf("Retrieve all tables and views of %s with column metadata.", src.Name),
			OperationID: fmt.Sprintf("schema_%s", src.Name),
			Responses: newResponses("200", fmt.Sprintf("Schema for %s", src.Name), &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
		},
	})

	if src.Schema == nil {
		return doc
	}

	tables := append([]model.TableSchema{}, src.Schema.Tables...)
	tables = append(tables, src.Schema.Views...)
	for _, table := range tables {
		name := componentName(src.Name, table.Name)
		doc.Components.Schemas[name] = columnsToSchema(table.Columns)

		tablePath := fmt.Sprintf("%s/%s", schemaPath, table.Name)
		doc.Paths.Set(tablePath, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{src.Name},
				Summary:     fmt.Sprintf("Get %s schema", table.Name),
				Description: fmt.Sprintf("Retrieve column definitions, keys, and indexes for %s.", table.Name),
				OperationID: fmt.Sprintf("schema_%s_%s", src.Name, table.Name),
				Responses: newResponses("200", fmt.Sprintf("Schema for %s", table.Name),
					openapi3.NewSchemaRef("#/components/schemas/"+name, nil)),
			},
		})
	}

	return doc
}

// newDocument creates a document skeleton with the shared security schemes
// and error response schema.
func newDocument(title, description, baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       title,
			Description: description,
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
		{"bearerAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	return doc
}

// registerLifecycleSchemas adds the API key lifecycle component schemas.
func registerLifecycleSchemas(doc *openapi3.T) {
	keyProps := openapi3.Schemas{
		"id":                    strProp(""),
		"name":                  strProp(""),
		"description":           strProp(""),
		"key_prefix":            strProp("First characters of the key, for display and lookup."),
		"scopes":                &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: strProp("")}},
		"is_active":             boolProp(),
		"rate_limit_per_minute": intProp(),
		"rate_limit_per_hour":   intProp(),
		"rate_limit_per_day":    intProp(),
		"request_count":         intProp(),
		"created_at":            fmtProp("string", "date-time"),
		"updated_at":            fmtProp("string", "date-time"),
		"expires_at":            fmtProp("string", "date-time"),
		"last_used_at":          fmtProp("string", "date-time"),
	}

	doc.Components.Schemas["APIKey"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: keyProps},
	}

	createdProps := openapi3.Schemas{}
	for k, v := range keyProps {
		createdProps[k] = v
	}
	createdProps["api_key"] = strProp("Plaintext key. Returned only once, on create or rotate.")
	doc.Components.Schemas["APIKeyCreated"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: createdProps},
	}

	doc.Components.Schemas["APIKeyDraft"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"name":                  strProp(""),
				"description":           strProp(""),
				"scopes":                &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: strProp("")}},
				"rate_limit_per_minute": intProp(),
				"rate_limit_per_hour":   intProp(),
				"rate_limit_per_day":    intProp(),
				"expires_at":            fmtProp("string", "date-time"),
			},
			Required: []string{"name", "scopes", "rate_limit_per_minute", "rate_limit_per_hour", "rate_limit_per_day"},
		},
	}

	doc.Components.Schemas["UsageStats"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"total_requests": intProp(),
				"error_rate":     fmtProp("number", "double"),
				"last_used_at":   fmtProp("string", "date-time"),
				"top_endpoints": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								Properties: openapi3.Schemas{
									"path":  strProp(""),
									"count": intProp(),
								},
							},
						},
					},
				},
			},
		},
	}
}

func addSessionPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/system/admin/session", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"session"},
			Summary:     "Create admin session",
			Description: "Exchange admin email and password for a short-lived bearer token.",
			OperationID: "create_session",
			Security:    &openapi3.SecurityRequirements{},
			RequestBody: jsonBody("Admin credentials", true, &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"email":    strProp(""),
						"password": strProp(""),
					},
					Required: []string{"email", "password"},
				},
			}),
			Responses: newResponses("200", "Session token", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"session_token": strProp(""),
						"token_type":    strProp(""),
						"expires_in":    intProp(),
					},
				},
			}),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"session"},
			Summary:     "End admin session",
			OperationID: "delete_session",
			Responses:   newResponses("200", "Session ended", successSchema()),
		},
	})
}

func addAdminPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/system/admins", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"admins"},
			Summary:     "List admins",
			OperationID: "list_admins",
			Responses:   newResponses("200", "Admin accounts", listSchema(nil)),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"admins"},
			Summary:     "Create admin",
			OperationID: "create_admin",
			RequestBody: jsonBody("Admin account to create", true, &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"email":    strProp(""),
						"password": strProp("Minimum 8 characters."),
						"name":     strProp(""),
					},
					Required: []string{"email", "password"},
				},
			}),
			Responses: newResponses("201", "Created admin", successSchema()),
		},
	})
}

func addSourcePaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/system/sources", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "List data sources",
			OperationID: "list_sources",
			Responses:   newResponses("200", "Configured data sources", listSchema(nil)),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Register data source",
			Description: "Store a data source and attempt to connect it. A failed connection still registers the source.",
			OperationID: "create_source",
			RequestBody: jsonBody("Data source definition", true, &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"name":   strProp(""),
						"driver": strProp("One of: postgres, mysql, mssql, snowflake, sqlite."),
						"dsn":    strProp(""),
						"label":  strProp(""),
					},
					Required: []string{"name", "driver", "dsn"},
				},
			}),
			Responses: newResponses("201", "Registered data source", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/sources/{sourceName}", &openapi3.PathItem{
		Parameters: pathParams("sourceName"),
		Get: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Get data source",
			OperationID: "get_source",
			Responses:   newResponses("200", "Data source", successSchema()),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Remove data source",
			OperationID: "delete_source",
			Responses:   newResponses("200", "Removed data source", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/sources/{sourceName}/test", &openapi3.PathItem{
		Parameters: pathParams("sourceName"),
		Post: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Test data source connection",
			OperationID: "test_source",
			Responses:   newResponses("200", "Connection status", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/sources/{sourceName}/schema", &openapi3.PathItem{
		Parameters: pathParams("sourceName"),
		Get: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Introspect source schema",
			OperationID: "get_source_schema",
			Responses:   newResponses("200", "Tables and views", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/sources/{sourceName}/schema/{tableName}", &openapi3.PathItem{
		Parameters: pathParams("sourceName", "tableName"),
		Get: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Introspect table schema",
			OperationID: "get_table_schema",
			Responses:   newResponses("200", "Table columns, keys, and indexes", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/sources/{sourceName}/openapi.json", &openapi3.PathItem{
		Parameters: pathParams("sourceName"),
		Get: &openapi3.Operation{
			Tags:        []string{"sources"},
			Summary:     "Get source API spec",
			Description: "Generate an OpenAPI document describing the source's tables and views.",
			OperationID: "get_source_spec",
			Responses:   newResponses("200", "OpenAPI document", successSchema()),
		},
	})
}

func addKeyPaths(doc *openapi3.T) {
	keyRef := openapi3.NewSchemaRef("#/components/schemas/APIKey", nil)
	createdRef := openapi3.NewSchemaRef("#/components/schemas/APIKeyCreated", nil)
	draftRef := openapi3.NewSchemaRef("#/components/schemas/APIKeyDraft", nil)
	usageRef := openapi3.NewSchemaRef("#/components/schemas/UsageStats", nil)

	doc.Paths.Set("/api/v1/system/api-keys", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "List API keys",
			Description: "List the caller's API keys. Inactive keys are hidden unless include_inactive is set.",
			OperationID: "list_api_keys",
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("include_inactive").
						WithDescription("Include deactivated keys.").
						WithSchema(openapi3.NewBoolSchema()),
				},
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("q").
						WithDescription("Case-insensitive substring match on name and description.").
						WithSchema(openapi3.NewStringSchema()),
				},
			},
			Responses: newResponses("200", "API keys", listSchema(keyRef)),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Create API key",
			Description: "Create a new key. The response includes the plaintext key exactly once; it is never retrievable again.",
			OperationID: "create_api_key",
			RequestBody: jsonBody("Key to create", true, draftRef),
			Responses:   newResponses("201", "Created key with plaintext secret", createdRef),
		},
	})

	doc.Paths.Set("/api/v1/system/api-keys/{keyID}", &openapi3.PathItem{
		Parameters: pathParams("keyID"),
		Get: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Get API key",
			OperationID: "get_api_key",
			Responses:   newResponses("200", "API key", keyRef),
		},
		Patch: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Update API key",
			Description: "Partially update name, description, scopes, or rate limits. Invalid patches leave the key unchanged.",
			OperationID: "update_api_key",
			RequestBody: jsonBody("Fields to change", true, draftRef),
			Responses:   newResponses("200", "Updated key", keyRef),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Delete API key",
			Description: "Permanently remove the key. Requests using it fail immediately.",
			OperationID: "delete_api_key",
			Responses:   newResponses("200", "Deleted key", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/api-keys/{keyID}/rotate", &openapi3.PathItem{
		Parameters: pathParams("keyID"),
		Post: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Rotate API key",
			Description: "Replace the key's secret. The old secret stops working immediately; the new plaintext is returned once.",
			OperationID: "rotate_api_key",
			Responses:   newResponses("200", "Rotated key with new plaintext secret", createdRef),
		},
	})

	doc.Paths.Set("/api/v1/system/api-keys/{keyID}/active", &openapi3.PathItem{
		Parameters: pathParams("keyID"),
		Put: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Activate or deactivate API key",
			Description: "Idempotent toggle. Deactivation preserves the key's configuration for later reactivation.",
			OperationID: "set_api_key_active",
			RequestBody: jsonBody("Desired state", true, &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:       &openapi3.Types{"object"},
					Properties: openapi3.Schemas{"is_active": boolProp()},
					Required:   []string{"is_active"},
				},
			}),
			Responses: newResponses("200", "Key after the change", keyRef),
		},
	})

	doc.Paths.Set("/api/v1/system/api-keys/{keyID}/usage", &openapi3.PathItem{
		Parameters: pathParams("keyID"),
		Get: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Get API key usage",
			Description: "Read-only usage statistics: request totals, error rate, and top endpoints.",
			OperationID: "get_api_key_usage",
			Responses:   newResponses("200", "Usage statistics", usageRef),
		},
	})
}

func addScopePaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/system/scopes", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"scopes"},
			Summary:     "List scopes",
			Description: "The scope catalog, flat and grouped by category.",
			OperationID: "list_scopes",
			Responses:   newResponses("200", "Scope catalog", successSchema()),
		},
	})

	doc.Paths.Set("/api/v1/system/scopes/toggle", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"scopes"},
			Summary:     "Toggle scope category",
			Description: "Pure selection helper: adds all scopes of a category when any are missing, removes them all when every one is present.",
			OperationID: "toggle_scope_category",
			RequestBody: jsonBody("Current selection and category", true, &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"selected": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: strProp("")}},
						"category": strProp(""),
					},
					Required: []string{"category"},
				},
			}),
			Responses: newResponses("200", "New selection", successSchema()),
		},
	})
}

func addSettingsPaths(doc *openapi3.T) {
	for _, name := range []string{"smtp", "slack"} {
		doc.Paths.Set("/api/v1/system/settings/"+name, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{"settings"},
				Summary:     fmt.Sprintf("Get %s settings", name),
				OperationID: fmt.Sprintf("get_%s_settings", name),
				Responses:   newResponses("200", "Integration settings", successSchema()),
			},
			Put: &openapi3.Operation{
				Tags:        []string{"settings"},
				Summary:     fmt.Sprintf("Update %s settings", name),
				OperationID: fmt.Sprintf("put_%s_settings", name),
				RequestBody: jsonBody("New settings", true, successSchema()),
				Responses:   newResponses("200", "Stored settings", successSchema()),
			},
		})
	}
}

func addWorkspacePaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/workspace/ping", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"workspace"},
			Summary:     "Ping the workspace API",
			Description: "Echo the authenticated principal. Useful for verifying a key and its scopes.",
			OperationID: "workspace_ping",
			Responses:   newResponses("200", "Pong", successSchema()),
		},
	})
}

// columnsToSchema generates a record schema from introspected columns.
func columnsToSchema(columns []model.Column) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	var required []string

	for _, col := range columns {
		m := MapJSONType(col.JsonType)
		s := &openapi3.Schema{Type: &openapi3.Types{m.Type}}
		if m.Format != "" {
			s.Format = m.Format
		}
		if m.Type == "array" {
			s.Items = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
		}
		if col.Nullable {
			s.Nullable = true
		}
		if col.MaxLength != nil {
			ml := uint64(*col.MaxLength)
			s.MaxLength = &ml
		}
		props[col.Name] = &openapi3.SchemaRef{Value: s}

		if !col.Nullable && col.Default == nil {
			required = append(required, col.Name)
		}
	}

	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

// newResponses builds a Responses map with a success response and standard
// error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	for code, desc := range map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"404": "Not found",
		"500": "Internal server error",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}

// jsonBody builds a JSON request body ref.
func jsonBody(description string, required bool, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    required,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{Schema: schema},
			},
		},
	}
}

// pathParams builds required string path parameters.
func pathParams(names ...string) openapi3.Parameters {
	params := make(openapi3.Parameters, 0, len(names))
	for _, name := range names {
		p := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
		p.Required = true
		params = append(params, &openapi3.ParameterRef{Value: p})
	}
	return params
}

// listSchema builds a {"resource": [...], "meta": {...}} response schema.
// A nil item ref documents an array of untyped objects.
func listSchema(itemRef *openapi3.SchemaRef) *openapi3.SchemaRef {
	if itemRef == nil {
		itemRef = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: itemRef,
					},
				},
				"meta": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"count": intProp(),
						},
					},
				},
			},
		},
	}
}

func successSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func strProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func intProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}
}

func boolProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func fmtProp(typ, format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}, Format: format}}
}

// componentName creates a valid component schema name from source + table names.
func componentName(sourceName, tableName string) string {
	s := capitalize(sourceName) + "_" + capitalize(tableName)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
