// Package progress has download.Observer implementations that report the progress
// table of a layer download to a terminal or to the log.
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/ecarrara/oci-registry-client/impl/download"

	"github.com/labstack/gommon/bytes"
	log "github.com/sirupsen/logrus"
)

const (
	cursorUp  = "\x1b[%dA"
	clearLine = "\x1b[2K"
)

// Terminal redraws the whole table in place after every update by moving the
// cursor back up over the lines it drew last time. Nothing else may write to Out
// while a download is running.
type Terminal struct {
	Out   io.Writer
	lines int
}

// NewTerminal returns a Terminal writing to the passed writer
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{Out: out}
}

func (t *Terminal) Update(table download.Table) {
	var sb strings.Builder
	if t.lines > 0 {
		fmt.Fprintf(&sb, cursorUp, t.lines)
	}
	for _, s := range table {
		sb.WriteString(clearLine)
		sb.WriteString(Line(s))
		sb.WriteByte('\n')
	}
	t.lines = len(table)
	io.WriteString(t.Out, sb.String())
}

// Line renders one table entry, for example:
//
//	88d4266fd4e6: downloading  1.50MiB / 3.00MiB  50.0%
//	4f4fb700ef54: downloading  12.00KiB
//	5d0da3dc9764: failed  blob 5d0d...: read 3 bytes, expected 5
//
// The percentage and the total only appear when the total is known.
func Line(s download.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %-11s", s.Digest.Short(), s.State)
	switch {
	case s.State == download.Unknown:
	case s.TotalKnown:
		pct, _ := s.Percent()
		fmt.Fprintf(&sb, "  %s / %s  %5.1f%%", bytes.Format(s.Downloaded), bytes.Format(s.Total), pct)
	default:
		fmt.Fprintf(&sb, "  %s", bytes.Format(s.Downloaded))
	}
	if s.Err != nil {
		fmt.Fprintf(&sb, "  %s", s.Err)
	}
	return sb.String()
}

// Log logs every state change of every entry. Byte count updates are not logged.
type Log struct {
	states map[int]download.State
}

// NewLog returns a Log observer
func NewLog() *Log {
	return &Log{states: make(map[int]download.State)}
}

func (l *Log) Update(table download.Table) {
	for _, s := range table {
		if prev, seen := l.states[s.Index]; seen && prev == s.State {
			continue
		}
		l.states[s.Index] = s.State
		switch s.State {
		case download.Downloading:
			if s.TotalKnown {
				log.Debugf("blob %s downloading %s", s.Digest.Short(), bytes.Format(s.Total))
			} else {
				log.Debugf("blob %s downloading, size unknown", s.Digest.Short())
			}
		case download.Completed:
			log.Infof("blob %s complete (%s)", s.Digest.Short(), bytes.Format(s.Downloaded))
		case download.Failed:
			log.Errorf("blob %s failed: %s", s.Digest.Short(), s.Err)
		case download.Cancelled:
			log.Infof("blob %s cancelled after %s", s.Digest.Short(), bytes.Format(s.Downloaded))
		}
	}
}

// Multi sends every update to all of the passed observers in order
type Multi []download.Observer

func (m Multi) Update(table download.Table) {
	for _, o := range m {
		o.Update(table)
	}
}
