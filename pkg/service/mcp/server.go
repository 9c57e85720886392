package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/repository"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the local plan store as MCP tools
type Server struct {
	local  *repository.LocalPlans
	server *mcp.Server
}

type listPlansParams struct{}

type getPlanParams struct {
	ID string `json:"id" jsonschema:"ID of the plan to get"`
}

type savePlanParams struct {
	Content string `json:"content" jsonschema:"Plan document as JSON with title, totalDurationMinutes and segments. A plan with an existing id replaces it"`
}

type deletePlanParams struct {
	ID string `json:"id" jsonschema:"ID of the plan to delete"`
}

// NewServer creates an MCP server on the local plan store
func NewServer(local *repository.LocalPlans, version string) *Server {
	s := &Server{
		local: local,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "timekeeper",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_plans",
		Description: "List locally saved conference plans with their id, title, duration and segment count",
	}, s.listPlans)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_plan",
		Description: "Get a locally saved conference plan as JSON",
	}, s.getPlan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_plan",
		Description: "Save a conference plan into local storage, replacing the plan with the same id",
	}, s.savePlan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_plan",
		Description: "Delete a locally saved conference plan. The caller is responsible for confirming with the user",
	}, s.deletePlan)

	return s
}

// Run serves over stdio until ctx is canceled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Handler serves the tools over the streamable HTTP transport
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Connect serves a single session over transport
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect mcp session")
	}
	return session, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

type planSummary struct {
	ID                   model.PlanID `json:"id"`
	Title                string       `json:"title"`
	TotalDurationMinutes int          `json:"totalDurationMinutes"`
	Segments             int          `json:"segments"`
	SegmentDuration      string       `json:"segmentDuration"`
}

func (s *Server) listPlans(ctx context.Context, req *mcp.CallToolRequest, params *listPlansParams) (*mcp.CallToolResult, any, error) {
	plans, err := s.local.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	summaries := make([]planSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, planSummary{
			ID:                   p.ID,
			Title:                p.Title,
			TotalDurationMinutes: p.TotalDurationMinutes,
			Segments:             len(p.Segments),
			SegmentDuration:      p.SegmentDuration(),
		})
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal plan list")
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) getPlan(ctx context.Context, req *mcp.CallToolRequest, params *getPlanParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, nil, goerr.Wrap(model.ErrValidation, "id is required")
	}

	plan, err := s.local.Get(ctx, model.PlanID(params.ID))
	if err != nil {
		return nil, nil, err
	}

	data, err := model.MarshalPlan(plan)
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) savePlan(ctx context.Context, req *mcp.CallToolRequest, params *savePlanParams) (*mcp.CallToolResult, any, error) {
	plan, err := model.ParsePlan([]byte(params.Content))
	if err != nil {
		return nil, nil, err
	}
	if plan.ID == "" {
		plan.ID = model.NewPlanID()
	}

	if err := s.local.Put(ctx, plan); err != nil {
		return nil, nil, err
	}

	logging.From(ctx).Info("plan saved via mcp", "id", plan.ID, "title", plan.Title)
	return textResult("saved plan " + string(plan.ID)), nil, nil
}

func (s *Server) deletePlan(ctx context.Context, req *mcp.CallToolRequest, params *deletePlanParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, nil, goerr.Wrap(model.ErrValidation, "id is required")
	}

	deleted, err := s.local.Delete(ctx, model.PlanID(params.ID))
	if err != nil {
		return nil, nil, err
	}
	if !deleted {
		return textResult("no plan with id " + params.ID), nil, nil
	}

	logging.From(ctx).Info("plan deleted via mcp", "id", params.ID)
	return textResult("deleted plan " + params.ID), nil, nil
}
