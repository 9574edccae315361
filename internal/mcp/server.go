package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/urbaneyes/internal/classify"
	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/service"
)

// Server exposes the issue tracker as MCP tools.
type Server struct {
	managers  *service.Managers
	suggester *classify.Suggester
}

// NewServer creates the MCP server wrapper. A nil suggester means keyword
// matching only.
func NewServer(m *service.Managers, sug *classify.Suggester) *Server {
	if sug == nil {
		sug = classify.New(nil)
	}
	return &Server{managers: m, suggester: sug}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("urbaneyes", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listCategoriesTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueStatusTool())
	srv.AddTool(s.suggestCategoryTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// ue_list_categories
func (s *Server) listCategoriesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ue_list_categories",
		mcp.WithDescription("List all issue categories. Returns a JSON array of {id, name}."),
	)
	return tool, s.handleListCategories
}

func (s *Server) handleListCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.managers.Categories.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list categories: %v", err)), nil
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return jsonResult(categories)
}

// ue_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ue_list_issues",
		mcp.WithDescription("List reported issues, optionally only those in one category. Returns a JSON array of issues."),
		mcp.WithNumber("category_id", mcp.Description("Only list issues filed under this category id")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		issues []*models.Issue
		err    error
	)
	if categoryID := request.GetInt("category_id", 0); categoryID > 0 {
		issues, err = s.managers.Issues.ListByCategory(ctx, int64(categoryID))
	} else {
		issues, err = s.managers.Issues.List(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return jsonResult(issues)
}

// ue_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ue_create_issue",
		mcp.WithDescription("Report a new issue. The issue starts in PENDING status. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short summary, 5 to 255 characters")),
		mcp.WithString("description", mcp.Description("Details of the problem, up to 1000 characters")),
		mcp.WithNumber("category_id", mcp.Required(), mcp.Description("Category id (see ue_list_categories)")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	categoryID, err := request.RequireInt("category_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: category_id"), nil
	}

	issue, err := s.managers.Issues.Create(ctx, &models.Issue{
		Title:       title,
		Description: request.GetString("description", ""),
		CategoryID:  int64(categoryID),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// ue_update_issue_status
func (s *Server) updateIssueStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	statuses := make([]string, len(models.IssueStatuses))
	for i, st := range models.IssueStatuses {
		statuses[i] = string(st)
	}
	tool := mcp.NewTool("ue_update_issue_status",
		mcp.WithDescription("Move an issue to a new status. Only the status and update time change."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("status", mcp.Required(), mcp.Enum(statuses...), mcp.Description("New status")),
	)
	return tool, s.handleUpdateIssueStatus
}

func (s *Server) handleUpdateIssueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	issue, err := s.managers.Issues.UpdateStatus(ctx, int64(issueID), models.IssueStatus(status))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update issue %d: %v", issueID, err)), nil
	}
	return jsonResult(issue)
}

// ue_suggest_category
func (s *Server) suggestCategoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ue_suggest_category",
		mcp.WithDescription("Suggest the best existing category for an issue description. Returns {category, reason, source}; category is null when nothing fits."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Description("Issue description")),
	)
	return tool, s.handleSuggestCategory
}

func (s *Server) handleSuggestCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	categories, err := s.managers.Categories.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list categories: %v", err)), nil
	}
	res, err := s.suggester.Suggest(ctx, title, request.GetString("description", ""), categories)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to suggest category: %v", err)), nil
	}
	return jsonResult(res)
}
