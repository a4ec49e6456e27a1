package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/output"
	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
)

var (
	categoryColor   string
	categoryCascade bool
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage categories",
	Long: `Manage the categories work intervals are filed under.

Running bare 'grindstone category' is the same as 'grindstone category list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun(cmd.Context())
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun(cmd.Context())
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryAddRun(cmd.Context(), args[0], categoryColor)
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryRenameRun(cmd.Context(), args[0], args[1])
	},
}

var categoryColorCmd = &cobra.Command{
	Use:   "color <name> <#rrggbb>",
	Short: "Change a category's color",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryColorRun(cmd.Context(), args[0], args[1])
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a category",
	Long: `Delete a category.

A category that recorded intervals refer to is kept unless --cascade is
given, in which case those intervals are deleted with it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryDeleteRun(cmd.Context(), args[0], categoryCascade)
	},
}

func init() {
	categoryAddCmd.Flags().StringVar(&categoryColor, "color", store.DefaultCategoryColor, "Display color (#rrggbb)")
	categoryDeleteCmd.Flags().BoolVar(&categoryCascade, "cascade", false, "Also delete intervals recorded under the category")

	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryRenameCmd)
	categoryCmd.AddCommand(categoryColorCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}

func categoryListRun(ctx context.Context) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	categories, err := d.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		ui.Info("No categories. Use 'grindstone category add <name>' to create one.")
		return nil
	}

	summary, err := d.stats.Summary(ctx, stats.PeriodDay)
	if err != nil {
		return err
	}
	today := make(map[int64]int64, len(summary.Totals))
	for _, t := range summary.Totals {
		today[t.CategoryID] = t.TotalSeconds
	}

	table := ui.Table([]string{"ID", "Name", "Color", "Today"})
	for _, c := range categories {
		_ = table.Append([]string{
			fmt.Sprintf("%d", c.ID),
			output.Bold(c.Name),
			c.Color,
			output.Duration(secondsDuration(today[c.ID])),
		})
	}
	_ = table.Render()
	return nil
}

func categoryAddRun(ctx context.Context, name, color string) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	c, err := d.store.CreateCategory(ctx, name, color)
	if err != nil {
		return categoryError(name, err)
	}
	ui.Success("Created category %s (id %d)", output.Cyan(c.Name), c.ID)
	return nil
}

func categoryRenameRun(ctx context.Context, oldName, newName string) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	c, err := findCategory(ctx, d.store, oldName)
	if err != nil {
		return err
	}
	if err := d.store.RenameCategory(ctx, c.ID, newName); err != nil {
		return categoryError(newName, err)
	}
	ui.Success("Renamed %s to %s", output.Cyan(oldName), output.Cyan(newName))
	return nil
}

func categoryColorRun(ctx context.Context, name, color string) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	c, err := findCategory(ctx, d.store, name)
	if err != nil {
		return err
	}
	if err := d.store.SetCategoryColor(ctx, c.ID, color); err != nil {
		return err
	}
	ui.Success("Set color of %s to %s", output.Cyan(name), color)
	return nil
}

func categoryDeleteRun(ctx context.Context, name string, cascade bool) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	c, err := findCategory(ctx, d.store, name)
	if err != nil {
		return err
	}

	policy := store.RejectIfReferenced
	if cascade {
		policy = store.CascadeDeleteSessions
	}
	removed, err := d.store.DeleteCategory(ctx, c.ID, policy)
	if errors.Is(err, store.ErrCategoryInUse) {
		return fmt.Errorf("category %q has recorded intervals (use --cascade to delete them too): %w", name, err)
	}
	if err != nil {
		return err
	}

	if removed > 0 {
		ui.Success("Deleted category %s and %d intervals", output.Cyan(name), removed)
	} else {
		ui.Success("Deleted category %s", output.Cyan(name))
	}
	return nil
}

// findCategory resolves a category by exact name.
func findCategory(ctx context.Context, s *store.Store, name string) (*store.Category, error) {
	c, err := s.GetCategoryByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("category %q (see 'grindstone category list'): %w", name, err)
	}
	return c, err
}

func categoryError(name string, err error) error {
	if errors.Is(err, store.ErrDuplicateCategory) {
		return fmt.Errorf("category %q: %w", name, err)
	}
	return err
}
