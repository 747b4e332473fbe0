package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/houndci/sitecheck/kit"
	"github.com/houndci/sitecheck/store"
)

// RegisterMCP registers sitecheck tools on an MCP server.
func (r *Runner) RegisterMCP(srv *mcp.Server) {
	r.registerRunTool(srv)
	r.registerListTool(srv)
	r.registerGetTool(srv)
}

// --- run ---

type runReq struct {
	Scenario string `json:"scenario"`
}

func (r *Runner) registerRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "sitecheck_run",
		Description: "Run one declared scenario against its live page and return the report.",
		InputSchema: kit.InputSchema(map[string]any{
			"scenario": map[string]any{"type": "string", "description": "Scenario name from the catalog"},
		}, []string{"scenario"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		q := req.(*runReq)
		return r.RunNamed(ctx, q.Scenario)
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var q runReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &q, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list runs ---

type listReq struct {
	Scenario   string `json:"scenario"`
	FailedOnly bool   `json:"failed_only"`
	Limit      int    `json:"limit"`
}

func (r *Runner) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "sitecheck_list_runs",
		Description: "List recent scenario runs, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"scenario":    map[string]any{"type": "string", "description": "Filter by scenario name"},
			"failed_only": map[string]any{"type": "boolean", "description": "Only failed runs"},
			"limit":       map[string]any{"type": "integer", "description": "Max rows (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if r.reports == nil {
			return nil, fmt.Errorf("no report store configured")
		}
		q := req.(*listReq)
		return r.reports.ListRuns(ctx, store.ListFilter{
			Scenario:   q.Scenario,
			FailedOnly: q.FailedOnly,
			Limit:      q.Limit,
		})
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var q listReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &q, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- get run ---

type getReq struct {
	RunID string `json:"run_id"`
}

func (r *Runner) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "sitecheck_get_run",
		Description: "Fetch one run with its itemized checks.",
		InputSchema: kit.InputSchema(map[string]any{
			"run_id": map[string]any{"type": "string", "description": "Run ID"},
		}, []string{"run_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if r.reports == nil {
			return nil, fmt.Errorf("no report store configured")
		}
		q := req.(*getReq)
		return r.reports.GetRun(ctx, q.RunID)
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var q getReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &q, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
