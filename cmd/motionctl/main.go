// Command motionctl drives a motioncore Controller from a machine config
// and a plain JSON move list. It intentionally does not parse G-code: the
// move list is this repository's own wire format, produced by whatever
// front end (slicer post-processor, test harness) owns that translation.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "motionctl: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
