package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/output"
	"github.com/joescharf/urbaneyes/internal/service"
)

var (
	reportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export categories, issues, or users in various formats. Password hashes are never exported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize issues by category and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "issues", "Data type: categories, issues, users")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
}

func exportRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "categories":
		return exportCategories(ctx, m)
	case "issues":
		return exportIssues(ctx, m)
	case "users":
		return exportUsers(ctx, m)
	default:
		return fmt.Errorf("unknown export type: %s (use: categories, issues, users)", exportType)
	}
}

// writeExport renders rows in the selected format. v is what json encodes.
func writeExport(title string, v any, header []string, rows [][]string) error {
	switch reportFormat {
	case "json":
		return ui.JSON(v)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write(header)
		_ = w.WriteAll(rows)
		return w.Error()
	case "markdown":
		fmt.Fprintf(ui.Out, "# %s\n\n", title)
		fmt.Fprintln(ui.Out, markdownRow(header))
		sep := make([]string, len(header))
		for i := range sep {
			sep[i] = "---"
		}
		fmt.Fprintln(ui.Out, markdownRow(sep))
		for _, r := range rows {
			fmt.Fprintln(ui.Out, markdownRow(r))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

var markdownCell = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func markdownRow(cells []string) string {
	row := "|"
	for _, c := range cells {
		row += " " + markdownCell.Replace(c) + " |"
	}
	return row
}

func exportCategories(ctx context.Context, m *service.Managers) error {
	categories, err := m.Categories.List(ctx)
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []*models.Category{}
	}

	rows := make([][]string, len(categories))
	for i, c := range categories {
		rows[i] = []string{strconv.FormatInt(c.ID, 10), c.Name}
	}
	return writeExport("Categories", categories, []string{"ID", "Name"}, rows)
}

func exportIssues(ctx context.Context, m *service.Managers) error {
	issues, err := m.Issues.List(ctx)
	if err != nil {
		return err
	}
	if issues == nil {
		issues = []*models.Issue{}
	}

	rows := make([][]string, len(issues))
	for i, issue := range issues {
		category := ""
		if issue.Category != nil {
			category = issue.Category.Name
		}
		rows[i] = []string{
			strconv.FormatInt(issue.ID, 10),
			issue.Title,
			string(issue.Status),
			category,
			issue.CreatedAt.Format(time.RFC3339),
			issue.UpdatedAt.Format(time.RFC3339),
		}
	}
	return writeExport("Issues", issues, []string{"ID", "Title", "Status", "Category", "Created", "Updated"}, rows)
}

func exportUsers(ctx context.Context, m *service.Managers) error {
	users, err := m.Users.List(ctx)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*models.User{}
	}

	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{strconv.FormatInt(u.ID, 10), u.Username, u.Email}
	}
	return writeExport("Users", users, []string{"ID", "Username", "Email"}, rows)
}

// categoryCounts tallies issues per status for one category.
type categoryCounts struct {
	name   string
	counts map[models.IssueStatus]int
	total  int
}

// tallyIssues groups issue counts by category name, sorted by name.
func tallyIssues(issues []*models.Issue) []*categoryCounts {
	byName := make(map[string]*categoryCounts)
	for _, i := range issues {
		name := fmt.Sprintf("#%d", i.CategoryID)
		if i.Category != nil && i.Category.Name != "" {
			name = i.Category.Name
		}
		c, ok := byName[name]
		if !ok {
			c = &categoryCounts{name: name, counts: make(map[models.IssueStatus]int)}
			byName[name] = c
		}
		c.counts[i.Status]++
		c.total++
	}

	out := make([]*categoryCounts, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].name < out[b].name })
	return out
}

func reportRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}

	issues, err := m.Issues.List(context.Background())
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		ui.Info("No issues reported yet.")
		return nil
	}

	header := []string{"Category"}
	for _, st := range models.IssueStatuses {
		header = append(header, output.StatusColor(string(st)))
	}
	header = append(header, "Total")

	table := ui.Table(header)
	for _, c := range tallyIssues(issues) {
		row := []string{c.name}
		for _, st := range models.IssueStatuses {
			row = append(row, strconv.Itoa(c.counts[st]))
		}
		row = append(row, strconv.Itoa(c.total))
		_ = table.Append(row)
	}
	_ = table.Render()

	ui.Info("%d issues in total", len(issues))
	return nil
}
