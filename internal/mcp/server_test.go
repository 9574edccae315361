package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/urbaneyes/internal/classify"
	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/service"
	"github.com/joescharf/urbaneyes/internal/store"
)

// failingStore fails every issue listing and delegates everything else.
type failingStore struct {
	store.Store
}

func (failingStore) ListIssues(context.Context) ([]*models.Issue, error) {
	return nil, errors.New("database is locked")
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestServer(t *testing.T) (*Server, *service.Managers) {
	t.Helper()
	m := service.New(newTestStore(t), nil)
	srv := NewServer(m, classify.New(nil))
	require.NotNil(t, srv)
	return srv, m
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedCategory(t *testing.T, m *service.Managers, name string) *models.Category {
	t.Helper()
	c, err := m.Categories.Create(context.Background(), &models.Category{Name: name})
	require.NoError(t, err)
	return c
}

func seedIssue(t *testing.T, m *service.Managers, title string, categoryID int64) *models.Issue {
	t.Helper()
	i, err := m.Issues.Create(context.Background(), &models.Issue{Title: title, CategoryID: categoryID})
	require.NoError(t, err)
	return i
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer())
}

func TestNewServer_NilSuggester(t *testing.T) {
	_, m := newTestServer(t)
	srv := NewServer(m, nil)
	assert.NotNil(t, srv.suggester)
}

// ---------------------------------------------------------------------------
// ue_list_categories
// ---------------------------------------------------------------------------

func TestHandleListCategories(t *testing.T) {
	srv, m := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleListCategories(ctx, callToolReq("ue_list_categories", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "[]", resultText(t, result))

	seedCategory(t, m, "Roads")
	seedCategory(t, m, "Parks")

	result, err = srv.handleListCategories(ctx, callToolReq("ue_list_categories", nil))
	require.NoError(t, err)
	var categories []models.Category
	resultJSON(t, result, &categories)
	require.Len(t, categories, 2)
	assert.Equal(t, "Roads", categories[0].Name)
	assert.Equal(t, "Parks", categories[1].Name)
}

// ---------------------------------------------------------------------------
// ue_list_issues
// ---------------------------------------------------------------------------

func TestHandleListIssues_All(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")
	parks := seedCategory(t, m, "Parks")
	seedIssue(t, m, "Pothole on Main St", roads.ID)
	seedIssue(t, m, "Broken bench by the pond", parks.ID)

	result, err := srv.handleListIssues(context.Background(), callToolReq("ue_list_issues", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var issues []models.Issue
	resultJSON(t, result, &issues)
	assert.Len(t, issues, 2)
}

func TestHandleListIssues_FilterByCategory(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")
	parks := seedCategory(t, m, "Parks")
	seedIssue(t, m, "Pothole on Main St", roads.ID)
	seedIssue(t, m, "Broken bench by the pond", parks.ID)

	// JSON numbers arrive as float64.
	req := callToolReq("ue_list_issues", map[string]any{"category_id": float64(parks.ID)})
	result, err := srv.handleListIssues(context.Background(), req)
	require.NoError(t, err)

	var issues []models.Issue
	resultJSON(t, result, &issues)
	require.Len(t, issues, 1)
	assert.Equal(t, "Broken bench by the pond", issues[0].Title)
	assert.Equal(t, parks.ID, issues[0].CategoryID)
}

func TestHandleListIssues_StoreError(t *testing.T) {
	m := service.New(failingStore{newTestStore(t)}, nil)
	srv := NewServer(m, nil)

	result, err := srv.handleListIssues(context.Background(), callToolReq("ue_list_issues", nil))
	require.NoError(t, err, "tool errors are reported in the result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "database is locked")
}

// ---------------------------------------------------------------------------
// ue_create_issue
// ---------------------------------------------------------------------------

func TestHandleCreateIssue(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")

	req := callToolReq("ue_create_issue", map[string]any{
		"title":       "Pothole on Main St",
		"description": "Deep enough to damage tyres",
		"category_id": float64(roads.ID),
	})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var issue models.Issue
	resultJSON(t, result, &issue)
	assert.NotZero(t, issue.ID)
	assert.Equal(t, models.IssueStatusPending, issue.Status)
	assert.Equal(t, roads.ID, issue.CategoryID)

	stored, err := m.Issues.Get(context.Background(), issue.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Deep enough to damage tyres", stored.Description)
}

func TestHandleCreateIssue_Errors(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing title", map[string]any{"category_id": float64(roads.ID)}, "title"},
		{"missing category", map[string]any{"title": "Pothole on Main St"}, "category_id"},
		{"unknown category", map[string]any{"title": "Pothole on Main St", "category_id": float64(999)}, "category"},
		{"short title", map[string]any{"title": "Hole", "category_id": float64(roads.ID)}, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleCreateIssue(context.Background(), callToolReq("ue_create_issue", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// ue_update_issue_status
// ---------------------------------------------------------------------------

func TestHandleUpdateIssueStatus(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")
	issue := seedIssue(t, m, "Pothole on Main St", roads.ID)

	req := callToolReq("ue_update_issue_status", map[string]any{
		"issue_id": float64(issue.ID),
		"status":   "IN_PROGRESS",
	})
	result, err := srv.handleUpdateIssueStatus(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var updated models.Issue
	resultJSON(t, result, &updated)
	assert.Equal(t, models.IssueStatusInProgress, updated.Status)
	assert.Equal(t, issue.Title, updated.Title)
}

func TestHandleUpdateIssueStatus_Errors(t *testing.T) {
	srv, m := newTestServer(t)
	roads := seedCategory(t, m, "Roads")
	issue := seedIssue(t, m, "Pothole on Main St", roads.ID)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing id", map[string]any{"status": "OPEN"}, "issue_id"},
		{"missing status", map[string]any{"issue_id": float64(issue.ID)}, "status"},
		{"unknown issue", map[string]any{"issue_id": float64(999), "status": "OPEN"}, "not found"},
		{"unknown status", map[string]any{"issue_id": float64(issue.ID), "status": "DONE"}, "DONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleUpdateIssueStatus(context.Background(), callToolReq("ue_update_issue_status", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// ue_suggest_category
// ---------------------------------------------------------------------------

func TestHandleSuggestCategory(t *testing.T) {
	srv, m := newTestServer(t)
	seedCategory(t, m, "Roads")
	waste := seedCategory(t, m, "Waste Collection")

	req := callToolReq("ue_suggest_category", map[string]any{
		"title":       "Overflowing trash bin",
		"description": "Garbage all over the sidewalk",
	})
	result, err := srv.handleSuggestCategory(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var res classify.Result
	resultJSON(t, result, &res)
	require.NotNil(t, res.Category)
	assert.Equal(t, waste.ID, res.Category.ID)
}

func TestHandleSuggestCategory_MissingTitle(t *testing.T) {
	srv, _ := newTestServer(t)
	result, err := srv.handleSuggestCategory(context.Background(), callToolReq("ue_suggest_category", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
