package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/output"
)

var categoryJSON bool

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage issue categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun()
	},
}

var categoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List categories",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun()
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryAddRun(args[0])
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <category-id> <name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryRenameRun(args[0], args[1])
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:     "delete <category-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a category that no issue references",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryDeleteRun(args[0])
	},
}

func init() {
	categoryListCmd.Flags().BoolVar(&categoryJSON, "json", false, "Output JSON")

	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryRenameCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}

// parseID parses a positive integer id given on the command line.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, arg)
	}
	return id, nil
}

func categoryListRun() error {
	m, err := getManagers()
	if err != nil {
		return err
	}

	categories, err := m.Categories.List(context.Background())
	if err != nil {
		return err
	}

	if categoryJSON {
		if categories == nil {
			categories = []*models.Category{}
		}
		return ui.JSON(categories)
	}
	if len(categories) == 0 {
		ui.Info("No categories found. Add one with 'urbaneyes category add <name>'.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name"})
	for _, c := range categories {
		_ = table.Append([]string{strconv.FormatInt(c.ID, 10), c.Name})
	}
	_ = table.Render()
	return nil
}

func categoryAddRun(name string) error {
	if dryRun {
		ui.DryRunMsg("Would add category: %s", name)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	c, err := m.Categories.Create(context.Background(), &models.Category{Name: name})
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	ui.Success("Created category %s: %s", output.Cyan(strconv.FormatInt(c.ID, 10)), c.Name)
	return nil
}

func categoryRenameRun(idArg, name string) error {
	id, err := parseID("category", idArg)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would rename category %d to %s", id, name)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	c, err := m.Categories.Update(context.Background(), id, &models.Category{Name: name})
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}

	ui.Success("Renamed category %s to %s", output.Cyan(idArg), c.Name)
	return nil
}

func categoryDeleteRun(idArg string) error {
	id, err := parseID("category", idArg)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete category %d", id)
		return nil
	}

	m, err := getManagers()
	if err != nil {
		return err
	}

	if err := m.Categories.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	ui.Success("Deleted category %s", output.Cyan(idArg))
	return nil
}
