// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package main

import (
	"io"

	"golang.org/x/exp/slog"

	"github.com/triblespace/tribles-go/log"
)

// newRotatingLogger backs the module-wide default Logger with a text
// handler writing through w, so a long-running invocation of this CLI
// can be pointed at a lumberjack.Logger instead of accumulating an
// unbounded file or flooding stderr.
func newRotatingLogger(w io.Writer) log.Logger {
	return log.NewWithHandler(slog.NewTextHandler(w, nil))
}
