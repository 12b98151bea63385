package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// PlainHandler writes one line per event to w, uncolored.
func PlainHandler(w io.Writer) Handler {
	return func(ev Event) {
		fmt.Fprintln(w, formatEvent(ev, false))
	}
}

// ColorHandler writes one line per event to stdout, colored when stdout is
// a terminal and plain otherwise — the same auto-detection the teacher
// stack's console handler uses.
func ColorHandler() Handler {
	useColor := isTerminal(os.Stdout.Fd())
	return func(ev Event) {
		fmt.Fprintln(os.Stdout, formatEvent(ev, useColor))
	}
}

func formatEvent(ev Event, useColor bool) string {
	mark := "redo"
	if ev.Fresh {
		mark = "enter"
	}

	status := "fail"
	attr := color.FgRed
	if ev.Ok {
		status = "ok"
		attr = color.FgGreen
	}
	if useColor {
		status = color.New(attr).Sprint(status)
	}

	latency := formatLatency(ev, useColor)
	return fmt.Sprintf("%s #%-3d %-8s %-5s %s", latency, ev.Step, ev.Op, mark, status)
}

// formatLatency renders a dispatch's duration in microseconds, colored
// green/yellow/red by magnitude the way the teacher's latency formatting
// does for query-level timings, just rescaled for single-opcode costs.
func formatLatency(ev Event, useColor bool) string {
	us := ev.Latency.Microseconds()
	s := fmt.Sprintf("[%dus]", us)
	if !useColor {
		return s
	}
	switch {
	case us < 10:
		return color.GreenString(s)
	case us < 100:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// isTerminal reports whether fd is stdout or stderr. A real terminal
// detector (golang.org/x/term or similar) would check the actual device;
// this mirrors the teacher stack's own simplified stand-in.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
