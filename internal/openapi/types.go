package openapi

import "strings"

// TypeMapping maps introspected column types to OpenAPI type/format pairs.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, date, date-time, uuid, byte, etc.
}

// MapJSONType converts a connector json_type annotation to an OpenAPI type
// mapping. Connectors emit either a bare type ("integer", "number", "string",
// "boolean", "object", "array") or a formatted string type such as
// "string(date-time)" or "string(uuid)". Unknown values fall back to a plain
// string.
func MapJSONType(jsonType string) TypeMapping {
	normalized := strings.ToLower(strings.TrimSpace(jsonType))

	// Formatted string types: "string(format)"
	if strings.HasPrefix(normalized, "string(") && strings.HasSuffix(normalized, ")") {
		format := normalized[len("string(") : len(normalized)-1]
		return TypeMapping{"string", format}
	}

	switch normalized {
	case "integer":
		return TypeMapping{"integer", "int64"}
	case "number":
		return TypeMapping{"number", "double"}
	case "boolean":
		return TypeMapping{"boolean", ""}
	case "object":
		return TypeMapping{"object", ""}
	case "array":
		return TypeMapping{"array", ""}
	case "string":
		return TypeMapping{"string", ""}
	default:
		return TypeMapping{"string", ""}
	}
}
