//go:build unix

package cli

import (
	"os"
	"syscall"
)

var resumeSignals = []os.Signal{syscall.SIGCONT}
