package process

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Result holds the output and status of a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process never started or was killed.
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr, trimmed to the last max bytes.
func (r *Result) Output(max int) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.Write(r.Stdout)
	if len(r.Stderr) > 0 {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.Write(r.Stderr)
	}
	return Tail(b.String(), max)
}

// Tail keeps the last max bytes of s, cut at a line start when possible.
// A max of zero or less keeps everything.
func Tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := len(s) - max
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	s = s[cut:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return "..." + s
}
