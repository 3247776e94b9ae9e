// Package diag wires the diagnostics channel. Diagnostics always go to
// stderr so they never mix with the tree or KAF output on stdout.
package diag

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Root is the logger name shared by the pipeline components.
const Root = "kafparse"

// Configure installs the stderr backend. verbosity 0 shows notices and
// warnings, each -v adds a level (info, then debug); negative values
// silence everything but errors.
func Configure(verbosity int) {
	if verbosity < 0 {
		verbosity = -2
	}
	commonlog.Configure(verbosity, nil)
}

// Logger returns the logger of a component, e.g. Logger("http") is
// "kafparse.http". An empty component names the root logger.
func Logger(component string) commonlog.Logger {
	if component == "" {
		return commonlog.GetLogger(Root)
	}
	return commonlog.GetLogger(Root + "." + component)
}
