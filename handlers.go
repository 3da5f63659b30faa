package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	s.initialized = true

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    AppName,
			Version: AppVersion,
		},
	}, nil
}

func (s *Server) handleListTools() (*ListToolsResult, *Error) {
	return &ListToolsResult{
		Tools: []Tool{
			{
				Name:        "query",
				Description: "Execute a read-only SQL query (single SELECT statements only)",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": {
							Type:        "string",
							Description: "The SELECT query to execute",
						},
					},
					Required: []string{"sql"},
				},
			},
			{
				Name:        "discover",
				Description: "Resolve business terms against the schema and draft a runnable SELECT",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"terms": {
							Type:        "string",
							Description: "Comma-separated concepts to look for (e.g. 'products, orders, sold')",
						},
						"dialect": {
							Type:        "string",
							Description: "Override the SQL dialect for the drafted query (sqlite, postgres, mysql, sqlserver)",
						},
					},
					Required: []string{"terms"},
				},
			},
			{
				Name:        "join_path",
				Description: "Find a foreign-key join path connecting two or more tables",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"tables": {
							Type:        "string",
							Description: "Comma-separated table names",
						},
					},
					Required: []string{"tables"},
				},
			},
			{
				Name:        "refresh_schema",
				Description: "Invalidate the schema cache and re-introspect the database",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]Property{},
					Required:   []string{},
				},
			},
			{
				Name:        "connect",
				Description: "Connect to a different database, replacing the current connection",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"driver":   {Type: "string", Description: "sqlite, postgres, mysql, or sqlserver"},
						"path":     {Type: "string", Description: "Database file path (sqlite)"},
						"host":     {Type: "string", Description: "Server host (network databases)"},
						"port":     {Type: "number", Description: "Server port"},
						"database": {Type: "string", Description: "Database name"},
						"user":     {Type: "string", Description: "Username"},
						"password": {Type: "string", Description: "Password"},
					},
					Required: []string{"driver"},
				},
			},
		},
	}, nil
}

func (s *Server) handleCallTool(params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	switch callParams.Name {
	case "query":
		return s.executeQuery(callParams.Arguments)
	case "discover":
		return s.discoverTerms(callParams.Arguments)
	case "join_path":
		return s.joinPath(callParams.Arguments)
	case "refresh_schema":
		return s.refreshSchema()
	case "connect":
		return s.connectTool(callParams.Arguments)
	default:
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}
}

func textResult(text string) *CallToolResult {
	return &CallToolResult{Content: []Content{{Type: "text", Text: text}}}
}

func errorResult(text string) *CallToolResult {
	return &CallToolResult{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}

func jsonResult(v any) *CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to marshal result: %v", err))
	}
	return textResult(string(data))
}

func (s *Server) executeQuery(args map[string]any) (*CallToolResult, *Error) {
	sqlQuery, ok := args["sql"].(string)
	if !ok || sqlQuery == "" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'sql' parameter",
		}
	}
	if s.engine == nil {
		return errorResult("Not connected to database."), nil
	}

	outcome := s.engine.RunSelect(s.ctx, sqlQuery)
	switch outcome.Status {
	case OutcomeWarning:
		return errorResult("Query rejected: " + outcome.Message), nil
	case OutcomeError:
		return errorResult("Query error: " + outcome.Message), nil
	}

	rows := make([]map[string]any, 0, len(outcome.Rows))
	for _, r := range outcome.Rows {
		obj := make(map[string]any, len(outcome.Columns))
		for i, col := range outcome.Columns {
			obj[col] = r[i]
		}
		rows = append(rows, obj)
	}
	return jsonResult(rows), nil
}

func (s *Server) discoverTerms(args map[string]any) (*CallToolResult, *Error) {
	termsArg, ok := args["terms"].(string)
	if !ok || strings.TrimSpace(termsArg) == "" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'terms' parameter",
		}
	}
	if s.engine == nil {
		return errorResult("Not connected to database."), nil
	}

	dialect := s.engine.Dialect()
	if override, ok := args["dialect"].(string); ok && override != "" {
		parsed, err := ParseDialect(override)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		dialect = parsed
	}

	var terms []string
	for _, t := range strings.Split(termsArg, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}

	schema := s.engine.Schema(s.ctx)
	draft := buildDraft(schema, dialect, terms, s.cfg.DraftRowLimit)

	return jsonResult(map[string]any{
		"sql":       draft.SQL,
		"tables":    draft.Tables,
		"runnable":  draft.Runnable,
		"matches":   draft.Matches,
		"notes":     draft.Notes,
		"unmatched": draft.Unmatched,
	}), nil
}

func (s *Server) joinPath(args map[string]any) (*CallToolResult, *Error) {
	tablesArg, ok := args["tables"].(string)
	if !ok || strings.TrimSpace(tablesArg) == "" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'tables' parameter",
		}
	}
	if s.engine == nil {
		return errorResult("Not connected to database."), nil
	}

	var tables []string
	for _, t := range strings.Split(tablesArg, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}

	path := s.engine.Schema(s.ctx).FindJoinPath(tables)
	if path == nil {
		return textResult("These tables don't appear to be directly related. Try fewer tables or refresh the schema."), nil
	}

	steps := make([]map[string]string, 0, len(path))
	for _, step := range path {
		steps = append(steps, map[string]string{
			"left":         step.Left,
			"right":        step.Right,
			"left_column":  step.LeftColumn,
			"right_column": step.RightColumn,
		})
	}
	return jsonResult(steps), nil
}

func (s *Server) refreshSchema() (*CallToolResult, *Error) {
	if s.engine == nil {
		return errorResult("Not connected to database."), nil
	}
	schema := s.engine.Refresh(s.ctx)
	return textResult(fmt.Sprintf("Schema refreshed: %d table(s).", len(schema.Tables))), nil
}

// connectTool replaces the active engine. A failed connect leaves the
// current engine untouched; only a successful one is swapped in, with the
// previous handle closed first.
func (s *Server) connectTool(args map[string]any) (*CallToolResult, *Error) {
	driver, ok := args["driver"].(string)
	if !ok || driver == "" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'driver' parameter",
		}
	}

	cfg := s.cfg
	cfg.Driver = driver
	if v, ok := args["path"].(string); ok && v != "" {
		cfg.Path = v
	}
	if v, ok := args["host"].(string); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := args["database"].(string); ok && v != "" {
		cfg.Database = v
	}
	if v, ok := args["user"].(string); ok && v != "" {
		cfg.User = v
	}
	if v, ok := args["password"].(string); ok && v != "" {
		cfg.Password = v
	}
	cfg.Port = 0 // re-derive the default port for the new driver
	if v, ok := args["port"].(float64); ok && v > 0 {
		cfg.Port = int(v)
	}
	cfg.applyDefaults()

	backend, err := backendFor(cfg.Driver)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	next, err := connectEngine(s.ctx, backend, cfg, s.logger)
	if err != nil {
		return errorResult(fmt.Sprintf("Connection failed: %v", err)), nil
	}

	s.engine = swapEngine(s.engine, next)
	s.cfg = cfg
	return textResult(fmt.Sprintf("Connected to %s: %s", next.Name(), next.Label())), nil
}

func (s *Server) handleListResources() (*ListResourcesResult, *Error) {
	if s.engine == nil {
		return &ListResourcesResult{Resources: []Resource{}}, nil
	}

	schema := s.engine.Schema(s.ctx)
	scheme := s.engine.backend.DriverName()
	label := s.engine.Label()

	resources := make([]Resource, 0, len(schema.Tables))
	for _, table := range schema.TableNames() {
		resources = append(resources, Resource{
			URI:      fmt.Sprintf("%s://%s/%s/schema", scheme, label, table),
			Name:     fmt.Sprintf("Schema for table '%s'", table),
			MimeType: "application/json",
		})
	}
	return &ListResourcesResult{Resources: resources}, nil
}

func (s *Server) handleReadResource(params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}
	if s.engine == nil {
		return nil, &Error{Code: InternalError, Message: "Not connected to database"}
	}

	// URI format: <scheme>://<database>/<table>/schema
	uri := readParams.URI
	scheme := s.engine.backend.DriverName() + "://"
	if !strings.HasPrefix(uri, scheme) {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI: must start with %s", scheme),
		}
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	if len(parts) < 3 || parts[len(parts)-1] != "schema" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI format: expected %s<database>/<table>/schema", scheme),
		}
	}
	table := parts[len(parts)-2]

	schema := s.engine.Schema(s.ctx)
	if !schema.HasTable(table) {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Unknown table: %s", table),
		}
	}

	fks := make([]map[string]string, 0)
	for _, rel := range schema.Relationships[table] {
		fks = append(fks, map[string]string{
			"referenced_table":  rel.RefTable,
			"local_column":      rel.LocalColumn,
			"referenced_column": rel.RefColumn,
		})
	}

	payload := map[string]any{
		"table":        table,
		"columns":      schema.ColumnsOf(table),
		"foreign_keys": fks,
	}

	// A few sample rows give the resource consumer a feel for the data.
	// Skipped when the preview can't run (e.g. not connected).
	limit := s.cfg.DraftRowLimit
	if limit <= 0 {
		limit = defaultDraftRowLimit
	}
	if preview := s.engine.SampleRows(s.ctx, table, limit); preview.Status == OutcomeSuccess {
		payload["sample"] = map[string]any{
			"columns": preview.Columns,
			"rows":    preview.Rows,
		}
	}

	doc, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to marshal schema: %v", err),
		}
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(doc),
			},
		},
	}, nil
}
