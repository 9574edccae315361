package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/output"
)

var (
	issueTitle    string
	issueDesc     string
	issueStatus   string
	issueCategory int64
	issueJSON     bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage reported issues",
	Long:  "Report city issues, move them through PENDING, OPEN, IN_PROGRESS and CLOSED, and file them under categories.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Report a new issue",
	Long:  "Report a new issue. It starts as PENDING. Without --category, a category is suggested from the title and description.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Update an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueUpdateRun(args[0])
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status <issue-id> <status>",
	Short: "Move an issue to PENDING, OPEN, IN_PROGRESS or CLOSED",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatusRun(args[0], args[1])
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

var issueSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a category for an issue description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueSuggestRun()
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	issueAddCmd.Flags().Int64Var(&issueCategory, "category", 0, "Category id (suggested when omitted)")
	_ = issueAddCmd.MarkFlagRequired("title")

	issueListCmd.Flags().Int64Var(&issueCategory, "category", 0, "Only issues in this category")
	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Only issues with this status")
	issueListCmd.Flags().BoolVar(&issueJSON, "json", false, "Output JSON")

	issueShowCmd.Flags().BoolVar(&issueJSON, "json", false, "Output JSON")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status")
	issueUpdateCmd.Flags().Int64Var(&issueCategory, "category", 0, "New category id")

	issueSuggestCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueSuggestCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	_ = issueSuggestCmd.MarkFlagRequired("title")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueStatusCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	issueCmd.AddCommand(issueSuggestCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueAddRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	categoryID := issueCategory
	if categoryID == 0 {
		categories, err := m.Categories.List(ctx)
		if err != nil {
			return err
		}
		res, err := newSuggester().Suggest(ctx, issueTitle, issueDesc, categories)
		if err != nil {
			return err
		}
		if res.Category == nil {
			return fmt.Errorf("no category fits this issue; pass --category")
		}
		categoryID = res.Category.ID
		ui.Info("Suggested category: %s (%s)", res.Category.Name, res.Source)
	}

	if dryRun {
		ui.DryRunMsg("Would report issue: %s [category %d]", issueTitle, categoryID)
		return nil
	}

	issue, err := m.Issues.Create(ctx, &models.Issue{
		Title:       issueTitle,
		Description: issueDesc,
		CategoryID:  categoryID,
	})
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", output.Cyan(strconv.FormatInt(issue.ID, 10)), issue.Title)
	return nil
}

func issueListRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var issues []*models.Issue
	if issueCategory > 0 {
		issues, err = m.Issues.ListByCategory(ctx, issueCategory)
	} else {
		issues, err = m.Issues.List(ctx)
	}
	if err != nil {
		return err
	}

	if issueStatus != "" {
		want := models.IssueStatus(strings.ToUpper(issueStatus))
		filtered := issues[:0]
		for _, i := range issues {
			if i.Status == want {
				filtered = append(filtered, i)
			}
		}
		issues = filtered
	}

	if issueJSON {
		if issues == nil {
			issues = []*models.Issue{}
		}
		return ui.JSON(issues)
	}
	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Status", "Category", "Updated"})
	for _, i := range issues {
		category := ""
		if i.Category != nil {
			category = i.Category.Name
		}
		_ = table.Append([]string{
			strconv.FormatInt(i.ID, 10),
			output.Truncate(i.Title, 50),
			output.StatusColor(string(i.Status)),
			category,
			i.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	return nil
}

func issueShowRun(idArg string) error {
	id, err := parseID("issue", idArg)
	if err != nil {
		return err
	}
	m, err := getManagers()
	if err != nil {
		return err
	}

	issue, err := m.Issues.Get(context.Background(), id)
	if err != nil {
		return err
	}
	if issue == nil {
		return fmt.Errorf("issue %d not found", id)
	}

	if issueJSON {
		return ui.JSON(issue)
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(idArg), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(issue.Status)))
	if issue.Category != nil {
		fmt.Fprintf(ui.Out, "  Category:   %s (%d)\n", issue.Category.Name, issue.CategoryID)
	}
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", issue.Description)
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", issue.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", issue.UpdatedAt.Format(time.RFC3339))
	return nil
}

func issueUpdateRun(idArg string) error {
	id, err := parseID("issue", idArg)
	if err != nil {
		return err
	}
	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := m.Issues.Get(ctx, id)
	if err != nil {
		return err
	}
	if issue == nil {
		return fmt.Errorf("issue %d not found", id)
	}

	// Update replaces every field, so start from the current values.
	patch := &models.Issue{
		Title:       issue.Title,
		Description: issue.Description,
		Status:      issue.Status,
		CategoryID:  issue.CategoryID,
	}
	changed := false
	if issueTitle != "" {
		patch.Title = issueTitle
		changed = true
	}
	if issueDesc != "" {
		patch.Description = issueDesc
		changed = true
	}
	if issueStatus != "" {
		patch.Status = models.IssueStatus(strings.ToUpper(issueStatus))
		changed = true
	}
	if issueCategory > 0 {
		patch.CategoryID = issueCategory
		changed = true
	}

	if !changed {
		return fmt.Errorf("no updates specified (use --title, --desc, --status, or --category)")
	}

	if dryRun {
		ui.DryRunMsg("Would update issue %d", id)
		return nil
	}

	if _, err := m.Issues.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("update issue: %w", err)
	}

	ui.Success("Updated issue %s", output.Cyan(idArg))
	return nil
}

func issueStatusRun(idArg, status string) error {
	id, err := parseID("issue", idArg)
	if err != nil {
		return err
	}
	st := models.IssueStatus(strings.ToUpper(status))

	if dryRun {
		ui.DryRunMsg("Would move issue %d to %s", id, st)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	issue, err := m.Issues.UpdateStatus(context.Background(), id, st)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	ui.Success("Issue %s is now %s", output.Cyan(idArg), output.StatusColor(string(issue.Status)))
	return nil
}

func issueDeleteRun(idArg string) error {
	id, err := parseID("issue", idArg)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete issue %d", id)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	if err := m.Issues.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}

	ui.Success("Deleted issue %s", output.Cyan(idArg))
	return nil
}

func issueSuggestRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}
	ctx := context.Background()

	categories, err := m.Categories.List(ctx)
	if err != nil {
		return err
	}

	res, err := newSuggester().Suggest(ctx, issueTitle, issueDesc, categories)
	if err != nil {
		return err
	}
	if res.Category == nil {
		ui.Warning("No category fits this issue")
		return nil
	}

	ui.Success("Suggested category %s: %s", output.Cyan(strconv.FormatInt(res.Category.ID, 10)), res.Category.Name)
	if res.Reason != "" {
		ui.VerboseLog("%s (%s)", res.Reason, res.Source)
	}
	return nil
}
