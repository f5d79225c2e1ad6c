// Command harness trains, replays, serves and inspects decision policies.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/decision-harness/internal/replay"
)

// #region main
func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "harness: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// #endregion main

// #region exit-codes

// errDiverged marks a replay that completed but found divergent entries.
var errDiverged = errors.New("replay diverged")

// exitCode maps command errors: 1 for divergence, 2 for usage or IO.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errDiverged) || errors.Is(err, replay.ErrDivergence) {
		return 1
	}
	return 2
}

// #endregion exit-codes
