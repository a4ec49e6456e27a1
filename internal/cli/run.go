package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/output"
	"github.com/sadopc/grindstone/internal/timer"
)

var (
	runCategory string
	runNote     string
)

// runTick is how often the headless loop advances the engine.
var runTick = time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer without the TUI",
	Long: `Start a work interval and keep the timer running in the foreground.

Type a letter and press enter to control it:

  p  pause        r  resume
  s  skip         x  stop
  n  start next   q  quit

Quitting or interrupting records a running interval as abandoned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd.Context(), os.Stdin)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runCategory, "category", "c", "", "Category of the work intervals (required)")
	runCmd.Flags().StringVar(&runNote, "note", "", "Note attached to each work interval")
	_ = runCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(runCmd)
}

func runRun(ctx context.Context, in io.Reader) error {
	d, err := getDeps()
	if err != nil {
		return err
	}
	c, err := findCategory(ctx, d.store, runCategory)
	if err != nil {
		return err
	}
	return runSession(ctx, d.engine, c.ID, c.Name, runNote, in, ui.Out)
}

// runSession drives e through a timer.Loop until q, end of ctx or a loop
// failure. End of input leaves the timer running.
func runSession(ctx context.Context, e *timer.Engine, categoryID int64, categoryName, note string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rep := &reporter{out: out, category: categoryName}
	loop := timer.NewLoop(e, runTick)
	loop.OnTick = rep.report
	loop.OnError = func(err error) { rep.printf("%s %v\n", output.Red("!"), err) }

	commands := make(chan timer.Command)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, commands) }()

	send := func(cmd timer.Command) error {
		reply := make(chan error, 1)
		cmd.Reply = reply
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case err := <-reply:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := timer.Command{Op: timer.OpStart, CategoryID: &categoryID, Note: note}
	if err := send(start); err != nil {
		cancel()
		<-done
		return err
	}
	rep.report(e.Snapshot())

	lines := readLines(ctx, in)
	var loopErr error
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case loopErr = <-done:
			done <- loopErr
			break wait
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			cmd, action := parseRunCommand(line, start)
			switch action {
			case runQuit:
				break wait
			case runHelp:
				rep.printf("p pause · r resume · s skip · x stop · n start next · q quit\n")
				continue
			case runUnknown:
				rep.printf("%s unknown command %q (? for help)\n", output.Yellow("!"), line)
				continue
			}
			if err := send(cmd); err != nil {
				rep.printf("%s %v\n", output.Red("!"), err)
			}
			rep.report(e.Snapshot())
		}
	}

	cancel()
	if err := <-done; err != nil && loopErr == nil {
		loopErr = err
	}

	// The loop has returned, so the engine is ours alone.
	if s := e.Snapshot(); s.Mode == timer.ModeRunning || s.Mode == timer.ModePaused {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := e.Stop(stopCtx, false); err != nil {
			return errors.Join(loopErr, fmt.Errorf("recording stopped interval: %w", err))
		}
		if s.Elapsed > 0 {
			rep.printf("■ %s stopped after %s, recorded as abandoned\n", s.Phase, output.Duration(s.Elapsed))
		}
	}
	return loopErr
}

type runAction int

const (
	runCommand runAction = iota
	runQuit
	runHelp
	runUnknown
)

// parseRunCommand maps one input line to a loop command. n reuses start's
// category and note; breaks ignore them.
func parseRunCommand(line string, start timer.Command) (timer.Command, runAction) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "p":
		return timer.Command{Op: timer.OpPause}, runCommand
	case "r":
		return timer.Command{Op: timer.OpResume}, runCommand
	case "s":
		return timer.Command{Op: timer.OpSkip}, runCommand
	case "x":
		return timer.Command{Op: timer.OpStop}, runCommand
	case "n":
		return timer.Command{Op: timer.OpStart, CategoryID: start.CategoryID, Note: start.Note}, runCommand
	case "q":
		return timer.Command{}, runQuit
	case "?", "h", "":
		return timer.Command{}, runHelp
	}
	return timer.Command{}, runUnknown
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// reporter prints a line whenever the timer changes phase or mode. It is
// called from the loop goroutine and the command goroutine.
type reporter struct {
	mu       sync.Mutex
	out      io.Writer
	category string
	last     timer.Snapshot
	seen     bool
}

func (r *reporter) printf(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, a...)
}

func (r *reporter) report(s timer.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen && s.Phase == r.last.Phase && s.Mode == r.last.Mode &&
		s.CycleCount == r.last.CycleCount && s.Condition == r.last.Condition {
		return
	}
	r.last, r.seen = s, true

	switch s.Mode {
	case timer.ModeRunning:
		label := ""
		if s.Phase == timer.PhaseWork {
			label = " · " + r.category
		}
		fmt.Fprintf(r.out, "▶ %s %s%s\n", output.Bold(s.Phase.String()), clock(s.Remaining), label)
	case timer.ModePaused:
		fmt.Fprintf(r.out, "‖ paused with %s left\n", clock(s.Remaining))
	case timer.ModeReady:
		fmt.Fprintf(r.out, "● %s ready (%s), n to start\n", s.Phase, clock(s.Remaining))
	case timer.ModeStopped:
		fmt.Fprintf(r.out, "■ stopped, %d work intervals this cycle\n", s.CycleCount)
	}
	if s.Condition != nil {
		fmt.Fprintf(r.out, "%s %v\n", output.Yellow("!"), s.Condition)
	}
}

// clock renders d as MM:SS, rounding up so a running timer never shows
// 00:00.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
