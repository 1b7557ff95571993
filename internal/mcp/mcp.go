// Package mcp implements the Model Context Protocol server for Takuto.
//
// The MCP server exposes the same capabilities as the HTTP API through
// MCP resources and tools, allowing MCP-compatible AI agents to run
// project analyses and read derived metrics and risk registers.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/orchestrator"
)

// RecordReader is the read-only store access the MCP layer needs.
type RecordReader interface {
	QueryDurations(ctx context.Context, projectID string, start, end time.Time) ([]model.DurationRecord, error)
}

// Server wraps the MCP server with Takuto's orchestration and metrics layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	orch      *orchestrator.Orchestrator
	engine    *metrics.Engine
	reader    RecordReader
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(orch *orchestrator.Orchestrator, engine *metrics.Engine, reader RecordReader, logger *slog.Logger) *Server {
	s := &Server{
		orch:   orch,
		engine: engine,
		reader: reader,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"takuto",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// takuto://roster — the agent roster and each agent's expertise.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"takuto://roster",
			"Agent Roster",
			mcplib.WithResourceDescription("The reasoning agent roster with expertise areas"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRoster,
	)
}

func (s *Server) registerTools() {
	// takuto_analyze — run the full agent roster against a project context.
	s.mcpServer.AddTool(
		mcplib.NewTool("takuto_analyze",
			mcplib.WithDescription("Run a multi-agent TAKT analysis of a project. Returns per-agent reasoning, cross-validation verdicts, and synthesized recommendations."),
			mcplib.WithString("project_id", mcplib.Description("Project identifier; stored duration records are loaded as history")),
			mcplib.WithString("project_name", mcplib.Description("Human-readable project name")),
			mcplib.WithNumber("duration_days", mcplib.Description("Planned project duration in days")),
			mcplib.WithNumber("team_size", mcplib.Description("Crew headcount")),
			mcplib.WithNumber("available_hours", mcplib.Description("Available working hours per period")),
			mcplib.WithNumber("demand_units", mcplib.Description("Units the period must deliver")),
			mcplib.WithString("complexity", mcplib.Description("Project complexity: low, medium, or high")),
		),
		s.handleAnalyze,
	)

	// takuto_metrics — derived TAKT metrics for a project window.
	s.mcpServer.AddTool(
		mcplib.NewTool("takuto_metrics",
			mcplib.WithDescription("Compute TAKT adherence, flow efficiency, bottlenecks, variance trend, and a variance forecast for a project"),
			mcplib.WithString("project_id", mcplib.Description("Project identifier"), mcplib.Required()),
			mcplib.WithString("start", mcplib.Description("Window start, RFC3339 (default: 30 days before end)")),
			mcplib.WithString("end", mcplib.Description("Window end, RFC3339 (default: now)")),
		),
		s.handleMetrics,
	)

	// takuto_risks — current risk register snapshot.
	s.mcpServer.AddTool(
		mcplib.NewTool("takuto_risks",
			mcplib.WithDescription("Read the most recent risk register snapshot for a project"),
			mcplib.WithString("project_id", mcplib.Description("Project identifier"), mcplib.Required()),
		),
		s.handleRisks,
	)
}

func (s *Server) handleRoster(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	profiles := make([]model.AgentProfile, 0, len(s.orch.Agents()))
	for _, ag := range s.orch.Agents() {
		profiles = append(profiles, ag.Profile())
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal roster: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "takuto://roster",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleAnalyze(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	actx := model.AnalysisContext{
		ProjectID:      request.GetString("project_id", ""),
		ProjectName:    request.GetString("project_name", ""),
		Duration:       request.GetFloat("duration_days", 0),
		TeamSize:       request.GetInt("team_size", 0),
		AvailableHours: request.GetFloat("available_hours", 0),
		DemandUnits:    request.GetFloat("demand_units", 0),
		Complexity:     request.GetString("complexity", ""),
	}

	if actx.ProjectID != "" {
		history, err := s.reader.QueryDurations(ctx, actx.ProjectID, time.Unix(0, 0).UTC(), time.Now().UTC())
		if err != nil {
			s.logger.Warn("mcp: history load failed", "project_id", actx.ProjectID, "error", err)
		} else {
			actx.History = history
		}
	}

	result, err := s.orch.AnalyzeProject(ctx, actx)
	if err != nil {
		return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(result, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleMetrics(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return errorResult("project_id is required"), nil
	}

	end := time.Now().UTC()
	if v := request.GetString("end", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return errorResult("invalid end: expected RFC3339 format"), nil
		}
		end = t
	}
	start := end.Add(-30 * 24 * time.Hour)
	if v := request.GetString("start", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return errorResult("invalid start: expected RFC3339 format"), nil
		}
		start = t
	}

	bundle, err := s.engine.Compute(ctx, projectID, start, end)
	if err != nil {
		return errorResult(fmt.Sprintf("metrics failed: %v", err)), nil
	}
	resources, err := s.engine.ResourceEfficiencies(ctx, projectID, start, end)
	if err != nil {
		return errorResult(fmt.Sprintf("resource efficiencies failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"project_id":           projectID,
		"metrics":              bundle,
		"resource_utilization": resources,
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleRisks(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return errorResult("project_id is required"), nil
	}

	risks, err := s.engine.RiskMatrix(ctx, projectID)
	if err != nil {
		return errorResult(fmt.Sprintf("risk query failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"project_id": projectID,
		"risks":      risks,
		"total":      len(risks),
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
