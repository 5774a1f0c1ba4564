package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// quartz://sources — list of all configured data sources
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			"quartz://sources",
			"Workspace Data Sources",
			mcp.WithResourceDescription(
				"List of all data sources configured in the Quartz workspace, "+
					"including their driver type and active status.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSourcesResource,
	)

	// -------------------------------------------------------------------
	// quartz://schema/{source} — full schema for a source (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"quartz://schema/{source}",
			"Source Schema",
			mcp.WithTemplateDescription(
				"Full schema introspection for a data source, including tables, "+
					"columns, primary keys, foreign keys, and indexes.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSchemaResource,
	)
}

// handleSourcesResource returns a JSON list of all configured sources.
func (s *MCPServer) handleSourcesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	type sourceInfo struct {
		Name     string `json:"name"`
		Label    string `json:"label,omitempty"`
		Driver   string `json:"driver"`
		Schema   string `json:"schema,omitempty"`
		IsActive bool   `json:"is_active"`
	}

	items := make([]sourceInfo, len(sources))
	for i, src := range sources {
		items[i] = sourceInfo{
			Name:     src.Name,
			Label:    src.Label,
			Driver:   src.Driver,
			Schema:   src.Schema,
			IsActive: src.IsActive,
		}
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "quartz://sources",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleSchemaResource returns the full introspected schema for a source.
func (s *MCPServer) handleSchemaResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	// Extract source name from URI: "quartz://schema/{source}"
	uri := request.Params.URI
	sourceName := strings.TrimPrefix(uri, "quartz://schema/")
	if sourceName == "" || sourceName == uri {
		return nil, fmt.Errorf("invalid schema URI %q: expected quartz://schema/{source}", uri)
	}

	conn, err := s.registry.Get(sourceName)
	if err != nil {
		return nil, fmt.Errorf("source %q not found: %w (available: %v)",
			sourceName, err, s.registry.ListSources())
	}

	schema, err := conn.IntrospectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect schema for %q: %w", sourceName, err)
	}

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
