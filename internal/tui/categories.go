package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/store"
)

var categoryColors = []string{"#E4572E", "#2EC4B6", "#6C63FF", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB", store.DefaultCategoryColor}

type categoryForm int

const (
	formNewCategory categoryForm = iota
	formEditCategory
)

type categoriesModel struct {
	ctx    context.Context
	store  *store.Store
	width  int
	height int

	categories []store.Category
	cursor     int

	// confirmCascade is set after a plain delete was refused because the
	// category still has intervals.
	confirmCascade bool

	formActive bool
	form       *huh.Form
	formType   categoryForm

	// Form field pointers (survive value copies)
	formName  *string
	formColor *string

	editing store.Category
}

func newCategoriesModel(ctx context.Context, s *store.Store) categoriesModel {
	name, color := "", categoryColors[0]
	return categoriesModel{
		ctx:       ctx,
		store:     s,
		formName:  &name,
		formColor: &color,
	}
}

func (c *categoriesModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type categoriesDataMsg struct {
	categories []store.Category
	err        error
}

func (c categoriesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		categories, err := c.store.ListCategories(c.ctx)
		return categoriesDataMsg{categories: categories, err: err}
	}
}

func (c categoriesModel) update(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case categoriesDataMsg:
		if msg.err != nil {
			return c, errorCmd(msg.err)
		}
		c.categories = msg.categories
		if c.cursor >= len(c.categories) {
			c.cursor = max(0, len(c.categories)-1)
		}
		return c, nil

	case categoriesChangedMsg:
		return c, c.refresh()

	case tea.KeyMsg:
		return c.updateList(msg)
	}
	return c, nil
}

func (c categoriesModel) updateList(msg tea.KeyMsg) (categoriesModel, tea.Cmd) {
	confirm := c.confirmCascade
	c.confirmCascade = false
	switch {
	case key.Matches(msg, keys.Up):
		if c.cursor > 0 {
			c.cursor--
		}
	case key.Matches(msg, keys.Down):
		if c.cursor < len(c.categories)-1 {
			c.cursor++
		}
	case key.Matches(msg, keys.New):
		return c.showForm(formNewCategory)
	case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
		if len(c.categories) > 0 {
			return c.showForm(formEditCategory)
		}
	case key.Matches(msg, keys.Delete):
		if len(c.categories) > 0 {
			return c.delete(store.RejectIfReferenced)
		}
	case key.Matches(msg, keys.Cascade):
		if len(c.categories) > 0 && confirm {
			return c.delete(store.CascadeDeleteSessions)
		}
	}
	return c, nil
}

func (c categoriesModel) delete(policy store.DeletePolicy) (categoriesModel, tea.Cmd) {
	cat := c.categories[c.cursor]
	n, err := c.store.DeleteCategory(c.ctx, cat.ID, policy)
	switch {
	case errors.Is(err, store.ErrCategoryInUse):
		c.confirmCascade = true
		return c, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("%q has recorded intervals. Press D to delete it with them.", cat.Name), isError: true}
		}
	case err != nil:
		return c, errorCmd(err)
	}
	changed := func() tea.Msg { return categoriesChangedMsg{} }
	if n > 0 {
		return c, tea.Batch(changed, recordedCmd, statusCmd("Deleted %q and %d intervals", cat.Name, n))
	}
	return c, tea.Batch(changed, statusCmd("Deleted %q", cat.Name))
}

func (c categoriesModel) showForm(kind categoryForm) (categoriesModel, tea.Cmd) {
	c.formType = kind
	if kind == formEditCategory {
		c.editing = c.categories[c.cursor]
		*c.formName = c.editing.Name
		*c.formColor = c.editing.Color
	} else {
		*c.formName = ""
		*c.formColor = categoryColors[0]
	}

	colorOptions := make([]huh.Option[string], len(categoryColors))
	for i, hex := range categoryColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("%s %s", colorDot(hex), hex), hex)
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Category Name").Value(c.formName).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			}),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(c.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c categoriesModel) updateForm(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		c.form = nil
		if err := c.save(); err != nil {
			return c, errorCmd(err)
		}
		return c, func() tea.Msg { return categoriesChangedMsg{} }
	}

	return c, cmd
}

func (c categoriesModel) save() error {
	name := strings.TrimSpace(*c.formName)
	switch c.formType {
	case formNewCategory:
		_, err := c.store.CreateCategory(c.ctx, name, *c.formColor)
		return err
	case formEditCategory:
		if name != c.editing.Name {
			if err := c.store.RenameCategory(c.ctx, c.editing.ID, name); err != nil {
				return err
			}
		}
		if *c.formColor != c.editing.Color {
			return c.store.SetCategoryColor(c.ctx, c.editing.ID, *c.formColor)
		}
	}
	return nil
}

func (c categoriesModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		title := titleStyle.Render("New Category")
		if c.formType == formEditCategory {
			title = titleStyle.Render("Edit Category")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Categories")
	if len(c.categories) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No categories yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s", "", "Name", "Color")))

	for i, cat := range c.categories {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-24s %-10s", cursor, colorDot(cat.Color), cat.Name, cat.Color)))
	}

	rows = append(rows, "")
	if c.confirmCascade {
		rows = append(rows, warningStyle.Render("  D: delete category and its intervals  any other key: cancel"))
	} else {
		rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
