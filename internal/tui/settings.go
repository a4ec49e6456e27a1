package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/config"
	"github.com/sadopc/grindstone/internal/store"
	"github.com/sadopc/grindstone/internal/timer"
)

// settingLabels names the keys shown in the settings view.
var settingLabels = map[string]string{
	config.KeyWork:           "Work",
	config.KeyShortBreak:     "Short break",
	config.KeyLongBreak:      "Long break",
	config.KeyLongBreakEvery: "Long break every",
	config.KeyAutoAdvance:    "Auto-advance",
}

type settingsModel struct {
	ctx    context.Context
	store  *store.Store
	engine *timer.Engine
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	work        *string
	shortBreak  *string
	longBreak   *string
	every       *string
	autoAdvance *bool
}

func newSettingsModel(ctx context.Context, s *store.Store, e *timer.Engine) settingsModel {
	w, sb, lb, ev := "", "", "", ""
	auto := false
	return settingsModel{
		ctx:         ctx,
		store:       s,
		engine:      e,
		work:        &w,
		shortBreak:  &sb,
		longBreak:   &lb,
		every:       &ev,
		autoAdvance: &auto,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

// refresh shows the configuration the engine is running with.
func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{settings: config.TimerSettings(s.engine.Config())}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cfg := s.engine.Config()
	*s.work = durationToMin(cfg.Work)
	*s.shortBreak = durationToMin(cfg.ShortBreak)
	*s.longBreak = durationToMin(cfg.LongBreak)
	*s.every = strconv.Itoa(cfg.LongBreakEvery)
	*s.autoAdvance = cfg.AutoAdvance

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work (min)").Value(s.work).Validate(validateMinutes),
			huh.NewInput().Title("Short break (min)").Value(s.shortBreak).Validate(validateMinutes),
			huh.NewInput().Title("Long break (min)").Value(s.longBreak).Validate(validateMinutes),
			huh.NewInput().Title("Work intervals before long break").Value(s.every).Validate(validateCount),
		).Title("Durations"),
		huh.NewGroup(
			huh.NewConfirm().Title("Start the next interval automatically?").Value(s.autoAdvance),
		).Title("Behaviour"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		if err := s.save(); err != nil {
			return s, errorCmd(err)
		}
		return s, tea.Batch(s.refresh(), statusCmd("Settings saved"))
	}

	return s, cmd
}

// save applies the form to the engine, then persists it. The running
// interval keeps its planned duration.
func (s settingsModel) save() error {
	cfg := s.engine.Config()
	var err error
	if cfg.Work, err = minToDuration(*s.work); err != nil {
		return err
	}
	if cfg.ShortBreak, err = minToDuration(*s.shortBreak); err != nil {
		return err
	}
	if cfg.LongBreak, err = minToDuration(*s.longBreak); err != nil {
		return err
	}
	if cfg.LongBreakEvery, err = strconv.Atoi(strings.TrimSpace(*s.every)); err != nil {
		return fmt.Errorf("long break every %q: %w", *s.every, store.ErrInvalidInput)
	}
	cfg.AutoAdvance = *s.autoAdvance

	if err := s.engine.Reconfigure(cfg); err != nil {
		return err
	}
	for _, st := range config.TimerSettings(cfg) {
		if err := s.store.SetSetting(s.ctx, st.Key, st.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title, "")
	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(settingLabels[setting.Key])
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case config.KeyWork, config.KeyShortBreak, config.KeyLongBreak:
		if d, err := time.ParseDuration(v); err == nil {
			return durationToMin(d) + " min"
		}
	case config.KeyAutoAdvance:
		if on, err := strconv.ParseBool(v); err == nil {
			if on {
				return "on"
			}
			return "off"
		}
	}
	return v
}

func durationToMin(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', -1, 64)
}

func minToDuration(s string) (time.Duration, error) {
	mins, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	d := time.Duration(mins * float64(time.Minute)).Round(time.Second)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("minutes %q: %w", s, store.ErrInvalidInput)
	}
	return d, nil
}

func validateMinutes(s string) error {
	_, err := minToDuration(s)
	return err
}

func validateCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("must be a whole number of at least 1")
	}
	return nil
}
