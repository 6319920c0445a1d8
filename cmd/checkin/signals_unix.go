//go:build unix

package main

import (
	"os"
	"syscall"
)

func resumeSignals() []os.Signal {
	return []os.Signal{syscall.SIGCONT}
}
