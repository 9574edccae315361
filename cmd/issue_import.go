package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/urbaneyes/internal/classify"
	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/service"
)

var issueImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a batch of reported issues from a markdown or YAML file",
	Long: `Import reported issues in bulk.

Markdown files list issues as numbered or bulleted items, optionally
grouped under "## <category name>" headings. An item may carry a
description after " -- ":

  ## Roads
  1. Pothole on Main St -- deep enough to damage tyres
  - Cracked asphalt on 2nd Ave

YAML files (.yaml, .yml) hold a list of {title, description, category}.

Issues without a known category get a suggested one; issues for which
nothing fits are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(args[0])
	},
}

func init() {
	issueCmd.AddCommand(issueImportCmd)
}

// importedIssue is one issue read from an import file. Category is a name.
type importedIssue struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

func issueImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	var entries []importedIssue
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
	default:
		entries = parseMarkdownIssues(string(data))
	}
	if len(entries) == 0 {
		ui.Info("No issues found in file.")
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	categories, err := m.Categories.List(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	resolved := resolveImportCategories(ctx, newSuggester(), entries, categories)

	// Preview table
	table := ui.Table([]string{"#", "Category", "Title"})
	for i, e := range entries {
		name := "(none)"
		if c := resolved[i]; c != nil {
			name = c.Name
		}
		_ = table.Append([]string{fmt.Sprintf("%d", i+1), name, e.Title})
	}
	_ = table.Render()

	if dryRun {
		ui.DryRunMsg("Would import %d issues", len(entries))
		return nil
	}

	return createImportedIssues(ctx, m, entries, resolved)
}

// resolveImportCategories maps each entry to an existing category, by name
// when it has one and by suggestion otherwise. Unresolved entries are nil.
func resolveImportCategories(ctx context.Context, sug *classify.Suggester, entries []importedIssue, categories []*models.Category) []*models.Category {
	byName := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		byName[strings.ToLower(c.Name)] = c
	}

	out := make([]*models.Category, len(entries))
	for i, e := range entries {
		if c, ok := byName[strings.ToLower(strings.TrimSpace(e.Category))]; ok {
			out[i] = c
			continue
		}
		res, err := sug.Suggest(ctx, e.Title, e.Description, categories)
		if err != nil {
			continue
		}
		out[i] = res.Category
	}
	return out
}

// parseMarkdownIssues does a simple parse of markdown to extract numbered/bulleted items.
func parseMarkdownIssues(content string) []importedIssue {
	var issues []importedIssue
	currentCategory := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		// Category heading: ## <name>
		if strings.HasPrefix(line, "## ") {
			currentCategory = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}

		text := listItemText(line)
		if text == "" {
			continue
		}

		entry := importedIssue{Title: text, Category: currentCategory}
		if title, desc, ok := strings.Cut(text, " -- "); ok {
			entry.Title = strings.TrimSpace(title)
			entry.Description = strings.TrimSpace(desc)
		}
		issues = append(issues, entry)
	}

	return issues
}

// listItemText returns the text of a "1. text", "- text" or "* text" item,
// or "" if line is not a list item.
func listItemText(line string) string {
	if len(line) <= 2 {
		return ""
	}
	// Numbered: "1. text", "12. text"
	for i, c := range line {
		if c == '.' && i > 0 && i < 4 {
			return strings.TrimSpace(line[i+1:])
		}
		if c < '0' || c > '9' {
			break
		}
	}
	// Bulleted: "- text"
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:])
	}
	return ""
}

// createImportedIssues files every entry that resolved to a category.
func createImportedIssues(ctx context.Context, m *service.Managers, entries []importedIssue, resolved []*models.Category) error {
	created := 0
	skipped := 0
	used := make(map[int64]bool)

	for i, e := range entries {
		c := resolved[i]
		if c == nil {
			ui.Warning("Skipping issue %q: no matching category", e.Title)
			skipped++
			continue
		}

		_, err := m.Issues.Create(ctx, &models.Issue{
			Title:       e.Title,
			Description: e.Description,
			CategoryID:  c.ID,
		})
		if err != nil {
			ui.Warning("Failed to create issue %q: %v", e.Title, err)
			skipped++
			continue
		}
		used[c.ID] = true
		created++
	}

	ui.Success("Created %d issues across %d categories", created, len(used))
	if skipped > 0 {
		ui.Warning("Skipped %d issues", skipped)
	}

	return nil
}
