package progress

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/ecarrara/oci-registry-client/impl/digest"
	"github.com/ecarrara/oci-registry-client/impl/download"

	log "github.com/sirupsen/logrus"
)

var d = digest.MustParse("sha256:88d4266fd4e6338d13b845fcf289579d209c897823b9217da3e161936f031589")

func TestLine(t *testing.T) {
	tests := []struct {
		status   download.Status
		contains []string
		excludes []string
	}{
		{download.Status{Digest: d}, []string{"88d4266fd4e6: waiting"}, []string{"%"}},
		{
			download.Status{Digest: d, State: download.Downloading, Downloaded: 512, Total: 1024, TotalKnown: true},
			[]string{"downloading", "512B / 1.00KiB", "50.0%"},
			nil,
		},
		{
			download.Status{Digest: d, State: download.Downloading, Downloaded: 2048},
			[]string{"downloading", "2.00KiB"},
			[]string{"%", "/"},
		},
		{
			download.Status{Digest: d, State: download.Failed, Err: errors.New("boom")},
			[]string{"failed", "boom"},
			nil,
		},
	}
	for _, test := range tests {
		line := Line(test.status)
		for _, s := range test.contains {
			if !strings.Contains(line, s) {
				t.Fatalf("line %q does not contain %q", line, s)
			}
		}
		for _, s := range test.excludes {
			if strings.Contains(line, s) {
				t.Fatalf("line %q must not contain %q", line, s)
			}
		}
	}
}

func TestTerminalRedraws(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out)
	table := download.Table{{Digest: d}, {Index: 1, Digest: d}}
	term.Update(table)
	if strings.Contains(out.String(), "\x1b[2A") || strings.Count(out.String(), "\n") != 2 {
		t.Fatalf("unexpected first draw %q", out.String())
	}
	out.Reset()
	term.Update(table)
	if !strings.HasPrefix(out.String(), "\x1b[2A") {
		t.Fatalf("second draw must move the cursor up: %q", out.String())
	}
}

func TestLogStateChanges(t *testing.T) {
	var out bytes.Buffer
	log.SetOutput(&out)
	log.SetLevel(log.InfoLevel)
	defer log.SetOutput(os.Stderr)
	l := NewLog()
	m := Multi{l}
	m.Update(download.Table{{Digest: d, State: download.Downloading, Downloaded: 1}})
	m.Update(download.Table{{Digest: d, State: download.Downloading, Downloaded: 2}})
	m.Update(download.Table{{Digest: d, State: download.Completed, Downloaded: 3}})
	m.Update(download.Table{{Digest: d, State: download.Completed, Downloaded: 3}})
	if n := strings.Count(out.String(), "complete"); n != 1 {
		t.Fatalf("expected one completion line, got %d: %s", n, out.String())
	}
}
