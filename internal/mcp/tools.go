package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools registers all Quartz MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Source discovery -----

	srv.AddTool(
		mcp.NewTool("quartz_list_sources",
			mcp.WithDescription(
				"List all data sources configured in the Quartz workspace. Returns each "+
					"source's name, driver type, and active status. Use this first to "+
					"discover available databases before exploring their schemas.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListSources,
	)

	srv.AddTool(
		mcp.NewTool("quartz_list_tables",
			mcp.WithDescription(
				"List all tables and views in a data source, including approximate row "+
					"counts and column summaries. Use this to explore what data is "+
					"available before describing specific tables.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("source",
				mcp.Required(),
				mcp.Description("Name of the data source to list tables for"),
			),
		),
		s.handleListTables,
	)

	srv.AddTool(
		mcp.NewTool("quartz_describe_table",
			mcp.WithDescription(
				"Get the detailed schema for a specific table, including all columns "+
					"with their types, nullability, defaults, primary keys, foreign keys, "+
					"and indexes.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("source",
				mcp.Required(),
				mcp.Description("Name of the data source"),
			),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to describe"),
			),
		),
		s.handleDescribeTable,
	)

	// ----- API key inspection -----

	srv.AddTool(
		mcp.NewTool("quartz_list_api_keys",
			mcp.WithDescription(
				"List the API keys owned by an admin, showing each key's name, prefix, "+
					"scopes, rate limits, and active status. Secrets are never included; "+
					"only the non-secret prefix is shown.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("owner_id",
				mcp.Required(),
				mcp.Description("ID of the admin whose keys to list"),
			),
			mcp.WithBoolean("include_inactive",
				mcp.Description("Include deactivated keys in the listing (default false)"),
			),
		),
		s.handleListAPIKeys,
	)

	srv.AddTool(
		mcp.NewTool("quartz_get_key_usage",
			mcp.WithDescription(
				"Get usage statistics for an API key: total requests, request counts "+
					"over the last 24h/7d/30d, average response time, error rate, and "+
					"the most-used endpoints.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("key_id",
				mcp.Required(),
				mcp.Description("ID of the API key"),
			),
			mcp.WithNumber("top",
				mcp.Description("Number of top endpoints to include (default 5, max 25)"),
			),
		),
		s.handleGetKeyUsage,
	)

	srv.AddTool(
		mcp.NewTool("quartz_list_scopes",
			mcp.WithDescription(
				"List the scope catalog: every permission scope an API key can carry, "+
					"with its category and description.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListScopes,
	)
}

// handleListSources returns all configured data sources. DSNs are omitted.
func (s *MCPServer) handleListSources(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return toolError("Failed to list sources: %v", err)
	}

	type sourceInfo struct {
		Name      string `json:"name"`
		Label     string `json:"label,omitempty"`
		Driver    string `json:"driver"`
		Schema    string `json:"schema,omitempty"`
		IsActive  bool   `json:"is_active"`
		Connected bool   `json:"connected"`
	}

	connected := make(map[string]bool)
	for _, name := range s.registry.ListSources() {
		connected[name] = true
	}

	items := make([]sourceInfo, len(sources))
	for i, src := range sources {
		items[i] = sourceInfo{
			Name:      src.Name,
			Label:     src.Label,
			Driver:    src.Driver,
			Schema:    src.Schema,
			IsActive:  src.IsActive,
			Connected: connected[src.Name],
		}
	}

	return successJSON(items)
}

// handleListTables returns a table and view summary for a source.
func (s *MCPServer) handleListTables(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	sourceName, err := requireString(request, "source")
	if err != nil {
		return toolError("%v. Available sources: %v", err, s.registry.ListSources())
	}

	conn, err := s.registry.Get(sourceName)
	if err != nil {
		return toolError("Source %q not found. Available sources: %v",
			sourceName, s.registry.ListSources())
	}

	schema, err := conn.IntrospectSchema(ctx)
	if err != nil {
		return toolError("Failed to introspect schema for %q: %v", sourceName, err)
	}

	type columnSummary struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		JsonType string `json:"json_type"`
		PK       bool   `json:"pk,omitempty"`
	}
	type tableInfo struct {
		Name     string          `json:"name"`
		Type     string          `json:"type"`
		RowCount *int64          `json:"row_count,omitempty"`
		Columns  []columnSummary `json:"columns"`
	}

	tables := make([]tableInfo, 0, len(schema.Tables)+len(schema.Views))
	for _, t := range schema.Tables {
		cols := make([]columnSummary, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = columnSummary{
				Name:     c.Name,
				Type:     c.Type,
				JsonType: c.JsonType,
				PK:       c.IsPrimaryKey,
			}
		}
		tables = append(tables, tableInfo{
			Name:     t.Name,
			Type:     "table",
			RowCount: t.RowCount,
			Columns:  cols,
		})
	}
	for _, v := range schema.Views {
		cols := make([]columnSummary, len(v.Columns))
		for i, c := range v.Columns {
			cols[i] = columnSummary{
				Name:     c.Name,
				Type:     c.Type,
				JsonType: c.JsonType,
			}
		}
		tables = append(tables, tableInfo{
			Name:     v.Name,
			Type:     "view",
			RowCount: v.RowCount,
			Columns:  cols,
		})
	}

	return successJSON(tables)
}

// handleDescribeTable returns detailed schema for a specific table.
func (s *MCPServer) handleDescribeTable(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	sourceName, err := requireString(request, "source")
	if err != nil {
		return toolError("%v. Available sources: %v", err, s.registry.ListSources())
	}
	tableName, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}

	conn, err := s.registry.Get(sourceName)
	if err != nil {
		return toolError("Source %q not found. Available sources: %v",
			sourceName, s.registry.ListSources())
	}

	table, err := conn.IntrospectTable(ctx, tableName)
	if err != nil {
		// Provide available table names to help the LLM self-correct.
		names, _ := conn.GetTableNames(ctx)
		return toolError("Table %q not found in source %q: %v\n\nAvailable tables: %v",
			tableName, sourceName, err, names)
	}

	return successJSON(table)
}

// handleListAPIKeys lists an admin's API keys without any secret material.
func (s *MCPServer) handleListAPIKeys(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	ownerID := optionalInt(request, "owner_id", 0)
	if ownerID <= 0 {
		return toolError("missing or invalid required parameter %q", "owner_id")
	}
	includeInactive := optionalBool(request, "include_inactive", false)

	keys, err := s.store.ListAPIKeys(ctx, int64(ownerID), includeInactive)
	if err != nil {
		return toolError("Failed to list API keys: %v", err)
	}

	return successJSON(keys)
}

// handleGetKeyUsage returns aggregated usage statistics for one key.
func (s *MCPServer) handleGetKeyUsage(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	keyID, err := requireString(request, "key_id")
	if err != nil {
		return toolError("%v", err)
	}
	topN := clamp(optionalInt(request, "top", 5), 1, 25)

	if _, err := s.store.GetAPIKey(ctx, keyID); err != nil {
		return toolError("API key %q not found: %v", keyID, err)
	}

	stats, err := s.store.GetUsageStats(ctx, keyID, topN)
	if err != nil {
		return toolError("Failed to load usage stats for %q: %v", keyID, err)
	}

	return successJSON(stats)
}

// handleListScopes returns the scope catalog.
func (s *MCPServer) handleListScopes(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	scopes, err := s.store.ListScopes(ctx)
	if err != nil {
		return toolError("Failed to list scopes: %v", err)
	}

	return successJSON(scopes)
}
