package model

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

var testCatalog = []APIScope{
	{Scope: "reports:read", Category: "Reports", Description: "Read report definitions and results"},
	{Scope: "reports:write", Category: "Reports", Description: "Create and modify reports"},
	{Scope: "sources:read", Category: "Sources", Description: "Read data source metadata"},
	{Scope: "billing:read", Category: "Billing", Description: "Read billing records"},
	{Scope: "billing:write", Category: "Billing", Description: "Modify billing records"},
}

func TestToggleCategory_SelectsAllWhenNoneSelected(t *testing.T) {
	got := ToggleCategory(nil, testCatalog, "Billing")
	want := []string{"billing:read", "billing:write"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToggleCategory = %v, want %v", got, want)
	}
}

func TestToggleCategory_DeselectsAllWhenAllSelected(t *testing.T) {
	selected := []string{"billing:read", "billing:write", "reports:read"}
	got := ToggleCategory(selected, testCatalog, "Billing")
	want := []string{"reports:read"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToggleCategory = %v, want %v", got, want)
	}
}

func TestToggleCategory_PartialSelectionUnions(t *testing.T) {
	// With only one of two Billing scopes selected, toggling must select the
	// union, not replace the existing selection.
	selected := []string{"billing:read", "sources:read"}
	got := ToggleCategory(selected, testCatalog, "Billing")
	want := []string{"billing:read", "billing:write", "sources:read"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToggleCategory = %v, want %v", got, want)
	}
}

func TestToggleCategory_Involution(t *testing.T) {
	// Double toggle restores the selection when the category starts either
	// fully selected or fully deselected. A partial start is not restored:
	// the first toggle completes the category, the second deselects it.
	starts := [][]string{
		nil,
		{"reports:read"},
		{"billing:read", "billing:write"},
		{"reports:read", "reports:write", "sources:read"},
	}
	for _, start := range starts {
		once := ToggleCategory(start, testCatalog, "Billing")
		twice := ToggleCategory(once, testCatalog, "Billing")

		want := append([]string(nil), start...)
		sort.Strings(want)
		if len(want) == 0 {
			want = []string{}
		}
		if !reflect.DeepEqual(twice, want) {
			t.Errorf("double toggle of %v = %v, want %v", start, twice, want)
		}
	}
}

func TestToggleCategory_PartialStartDeselectsOnSecondToggle(t *testing.T) {
	start := []string{"billing:read", "sources:read"}
	once := ToggleCategory(start, testCatalog, "Billing")
	twice := ToggleCategory(once, testCatalog, "Billing")

	want := []string{"sources:read"}
	if !reflect.DeepEqual(twice, want) {
		t.Errorf("double toggle of %v = %v, want %v", start, twice, want)
	}
}

func TestToggleCategory_UnknownCategoryIsNoOp(t *testing.T) {
	selected := []string{"reports:read"}
	got := ToggleCategory(selected, testCatalog, "Nope")
	if !reflect.DeepEqual(got, []string{"reports:read"}) {
		t.Errorf("ToggleCategory with unknown category = %v, want original selection", got)
	}
}

func TestToggleCategory_DoesNotMutateInput(t *testing.T) {
	selected := []string{"reports:read"}
	_ = ToggleCategory(selected, testCatalog, "Billing")
	if !reflect.DeepEqual(selected, []string{"reports:read"}) {
		t.Errorf("input slice was mutated: %v", selected)
	}
}

func TestGroupScopesByCategory(t *testing.T) {
	grouped := GroupScopesByCategory(testCatalog)

	if len(grouped) != 3 {
		t.Fatalf("got %d categories, want 3", len(grouped))
	}
	if len(grouped["Reports"]) != 2 {
		t.Errorf("Reports has %d scopes, want 2", len(grouped["Reports"]))
	}
	if grouped["Reports"][0].Scope != "reports:read" {
		t.Errorf("catalog order not preserved: got %q first", grouped["Reports"][0].Scope)
	}
	if len(grouped["Sources"]) != 1 {
		t.Errorf("Sources has %d scopes, want 1", len(grouped["Sources"]))
	}
}

func TestAPIKeyHashNotInJSON(t *testing.T) {
	key := APIKey{
		ID:        "0194a7e2-1111-7000-8000-000000000001",
		Name:      "ci",
		KeyHash:   "deadbeef",
		KeyPrefix: "qz_12345678",
		Scopes:    []string{"reports:read"},
		IsActive:  true,
	}

	b, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(b), "deadbeef") {
		t.Error("key hash leaked into JSON output")
	}
	if !strings.Contains(string(b), "qz_12345678") {
		t.Error("expected key_prefix in JSON output")
	}
}

func TestAPIKeyCreatedCarriesPlaintext(t *testing.T) {
	created := APIKeyCreated{
		APIKey:       APIKey{ID: "id-1", Name: "ci", KeyPrefix: "qz_abcd1234"},
		PlaintextKey: "qz_abcd1234deadbeef",
	}

	b, err := json.Marshal(created)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if m["api_key"] != "qz_abcd1234deadbeef" {
		t.Errorf("api_key = %v, want plaintext secret", m["api_key"])
	}
}

func TestAdminPasswordHashNotInJSON(t *testing.T) {
	admin := Admin{
		ID:           1,
		Email:        "admin@example.com",
		PasswordHash: "$2a$10$secret",
		IsActive:     true,
	}

	b, err := json.Marshal(admin)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(b), "$2a$10$secret") {
		t.Error("password hash leaked into JSON output")
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	pc := DefaultPoolConfig()

	if pc.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want 25", pc.MaxOpenConns)
	}
	if pc.MaxIdleConns != 5 {
		t.Errorf("MaxIdleConns = %d, want 5", pc.MaxIdleConns)
	}
	if pc.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("ConnMaxLifetime = %v, want %v", pc.ConnMaxLifetime, 5*time.Minute)
	}
}

func TestDataSourceDSNOmittedWhenEmpty(t *testing.T) {
	src := DataSource{ID: 1, Name: "warehouse", Driver: "postgres"}

	b, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := m["dsn"]; ok {
		t.Error("empty DSN should be omitted from JSON output")
	}
}
