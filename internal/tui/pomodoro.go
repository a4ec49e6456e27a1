package tui

import (
	"fmt"
	"strings"

	"github.com/sadopc/grindstone/internal/timer"
)

// renderCycle draws one dot per work interval in the cycle: finished,
// in progress, and still to come.
func renderCycle(snap timer.Snapshot, every int) string {
	if every < 1 {
		return ""
	}
	done := snap.CycleCount
	if snap.Phase == timer.PhaseLongBreak {
		done = every
	}
	var parts []string
	for i := range every {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && snap.Phase == timer.PhaseWork && snap.Mode != timer.ModeReady:
			parts = append(parts, phaseStyle(timer.PhaseWork).Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", min(done, every), every))
	return strings.Join(parts, " ") + counter
}
