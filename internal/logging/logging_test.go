package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsFilter(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, Warn)
	lg.Debugf("d %d", 1)
	lg.Infof("i %d", 2)
	lg.Warnf("w %d", 3)
	lg.Errorf("e %d", 4)

	out := buf.String()
	if strings.Contains(out, "d 1") || strings.Contains(out, "i 2") {
		t.Fatalf("messages below threshold leaked:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] w 3") || !strings.Contains(out, "[ERROR] e 4") {
		t.Fatalf("expected prefixed warn/error lines:\n%s", out)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var lg *Logger
	lg.Infof("nothing %s", "here")
	if lg.Enabled(Error) {
		t.Fatalf("nil logger should report disabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"DEBUG": Debug, "": Info, "info": Info, "warning": Warn, "Error": Error}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
