package openapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/quartzbi/quartz/internal/model"
)

// ---- MapJSONType ----

func TestMapJSONType(t *testing.T) {
	cases := []struct {
		in         string
		wantType   string
		wantFormat string
	}{
		{"integer", "integer", "int64"},
		{"number", "number", "double"},
		{"boolean", "boolean", ""},
		{"string", "string", ""},
		{"string(date-time)", "string", "date-time"},
		{"string(uuid)", "string", "uuid"},
		{"string(byte)", "string", "byte"},
		{"object", "object", ""},
		{"array", "array", ""},
		{"", "string", ""},
		{"garbage", "string", ""},
	}

	for _, tc := range cases {
		got := MapJSONType(tc.in)
		if got.Type != tc.wantType || got.Format != tc.wantFormat {
			t.Errorf("MapJSONType(%q) = {%s %s}, want {%s %s}",
				tc.in, got.Type, got.Format, tc.wantType, tc.wantFormat)
		}
	}
}

// ---- BuildAPISpec ----

func TestBuildAPISpecPaths(t *testing.T) {
	doc := BuildAPISpec("/")

	wantPaths := []string{
		"/api/v1/system/admin/session",
		"/api/v1/system/admins",
		"/api/v1/system/sources",
		"/api/v1/system/sources/{sourceName}",
		"/api/v1/system/api-keys",
		"/api/v1/system/api-keys/{keyID}",
		"/api/v1/system/api-keys/{keyID}/rotate",
		"/api/v1/system/api-keys/{keyID}/active",
		"/api/v1/system/api-keys/{keyID}/usage",
		"/api/v1/system/scopes",
		"/api/v1/system/scopes/toggle",
		"/api/v1/system/settings/smtp",
		"/api/v1/system/settings/slack",
		"/api/v1/workspace/ping",
	}

	for _, p := range wantPaths {
		if doc.Paths.Find(p) == nil {
			t.Errorf("missing path %s", p)
		}
	}
}

func TestBuildAPISpecSecuritySchemes(t *testing.T) {
	doc := BuildAPISpec("/")

	apiKey, ok := doc.Components.SecuritySchemes["apiKey"]
	if !ok {
		t.Fatal("missing apiKey security scheme")
	}
	if apiKey.Value.In != "header" || apiKey.Value.Name != "X-API-Key" {
		t.Errorf("apiKey scheme = in %s name %s", apiKey.Value.In, apiKey.Value.Name)
	}

	bearer, ok := doc.Components.SecuritySchemes["bearerAuth"]
	if !ok {
		t.Fatal("missing bearerAuth security scheme")
	}
	if bearer.Value.Scheme != "bearer" || bearer.Value.BearerFormat != "JWT" {
		t.Errorf("bearer scheme = %s format %s", bearer.Value.Scheme, bearer.Value.BearerFormat)
	}
}

func TestBuildAPISpecLifecycleSchemas(t *testing.T) {
	doc := BuildAPISpec("/")

	for _, name := range []string{"APIKey", "APIKeyCreated", "APIKeyDraft", "UsageStats", "ErrorResponse"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("missing component schema %s", name)
		}
	}

	// The plaintext secret belongs only to the create/rotate result.
	created := doc.Components.Schemas["APIKeyCreated"].Value
	if _, ok := created.Properties["api_key"]; !ok {
		t.Error("APIKeyCreated should include api_key")
	}
	key := doc.Components.Schemas["APIKey"].Value
	if _, ok := key.Properties["api_key"]; ok {
		t.Error("APIKey must not include api_key")
	}
}

func TestBuildAPISpecMarshals(t *testing.T) {
	doc := BuildAPISpec("/")

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal spec: %v", err)
	}
	if decoded["openapi"] != "3.1.0" {
		t.Errorf("openapi version = %v", decoded["openapi"])
	}
}

// ---- GenerateSourceSpec ----

func sampleSchema() *model.SourceSchema {
	maxLen := int64(255)
	return &model.SourceSchema{
		Tables: []model.TableSchema{
			{
				Name: "orders",
				Type: "table",
				Columns: []model.Column{
					{Name: "id", Position: 1, Type: "int8", JsonType: "integer", IsPrimaryKey: true, IsAutoIncrement: true},
					{Name: "customer", Position: 2, Type: "varchar", JsonType: "string", MaxLength: &maxLen},
					{Name: "placed_at", Position: 3, Type: "timestamptz", JsonType: "string(date-time)", Nullable: true},
				},
				PrimaryKey:  []string{"id"},
				ForeignKeys: []model.ForeignKey{},
				Indexes:     []model.Index{},
			},
		},
		Views: []model.TableSchema{
			{Name: "daily_totals", Type: "view", Columns: []model.Column{
				{Name: "day", Position: 1, Type: "date", JsonType: "string(date)"},
				{Name: "total", Position: 2, Type: "numeric", JsonType: "number"},
			}},
		},
	}
}

func TestGenerateSourceSpec(t *testing.T) {
	doc := GenerateSourceSpec(SourceSpec{
		Name:   "sales",
		Driver: "postgres",
		Schema: sampleSchema(),
	}, "/")

	if doc.Paths.Find("/api/v1/workspace/sales/schema") == nil {
		t.Error("missing schema path")
	}
	if doc.Paths.Find("/api/v1/workspace/sales/schema/orders") == nil {
		t.Error("missing orders table path")
	}
	if doc.Paths.Find("/api/v1/workspace/sales/schema/daily_totals") == nil {
		t.Error("missing daily_totals view path")
	}

	orders, ok := doc.Components.Schemas["Sales_Orders"]
	if !ok {
		t.Fatal("missing Sales_Orders component schema")
	}

	id := orders.Value.Properties["id"].Value
	if (*id.Type)[0] != "integer" {
		t.Errorf("id type = %v", id.Type)
	}

	placedAt := orders.Value.Properties["placed_at"].Value
	if placedAt.Format != "date-time" || !placedAt.Nullable {
		t.Errorf("placed_at format %s nullable %v", placedAt.Format, placedAt.Nullable)
	}

	customer := orders.Value.Properties["customer"].Value
	if customer.MaxLength == nil || *customer.MaxLength != 255 {
		t.Errorf("customer maxLength = %v", customer.MaxLength)
	}

	// Non-nullable columns without defaults are required.
	wantRequired := map[string]bool{"id": true, "customer": true}
	for _, r := range orders.Value.Required {
		if !wantRequired[r] {
			t.Errorf("unexpected required field %s", r)
		}
		delete(wantRequired, r)
	}
	if len(wantRequired) != 0 {
		t.Errorf("missing required fields: %v", wantRequired)
	}
}

func TestGenerateSourceSpecNilSchema(t *testing.T) {
	doc := GenerateSourceSpec(SourceSpec{Name: "empty", Driver: "sqlite"}, "/")
	if doc.Paths.Find("/api/v1/workspace/empty/schema") == nil {
		t.Error("missing schema path for nil-schema source")
	}
}

// ---- Handler ----

func TestServeSpec(t *testing.T) {
	h := NewHandler()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/openapi.json", nil)
		h.ServeSpec(rec, req)

		if rec.Code != 200 {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		if decoded["openapi"] != "3.1.0" {
			t.Errorf("openapi version = %v", decoded["openapi"])
		}
	}
}
