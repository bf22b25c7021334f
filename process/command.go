package process

import (
	"io"
	"time"
)

// Command is a subprocess to execute.
type Command struct {
	// Binary is resolved through PATH when not absolute.
	Binary string
	Args   []string
	Dir    string
	// Env entries (KEY=value) are appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	// Defaults to 5s.
	GracePeriod time.Duration
}
