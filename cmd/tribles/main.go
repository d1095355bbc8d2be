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

// Command tribles is a thin operational wrapper around pile and repo:
// it opens a pile file, lets a caller mint a signing key, create and
// inspect branches, and repair a crash-damaged pile.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/triblespace/tribles-go/log"
)

var (
	pileFlag = &cli.StringFlag{
		Name:    "pile",
		Aliases: []string{"p"},
		Usage:   "path to the pile file",
		EnvVars: []string{"TRIBLES_PILE"},
		Value:   "tribles.pile",
	}
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "path to the ed25519 signing keyfile",
		EnvVars: []string{"TRIBLES_KEY"},
		Value:   "tribles.key",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "rotate logs to this file instead of stderr (lumberjack-managed)",
	}
)

func main() {
	app := &cli.App{
		Name:  "tribles",
		Usage: "operate a pile-backed content-addressed knowledge-graph repository",
		Before: func(ctx *cli.Context) error {
			if path := ctx.String(logFileFlag.Name); path != "" {
				rotator := &lumberjack.Logger{Filename: path, MaxSize: 50, MaxBackups: 3}
				log.SetDefault(newRotatingLogger(rotator))
			}
			return nil
		},
		Flags: []cli.Flag{logFileFlag},
		Commands: []*cli.Command{
			commandKeygen,
			commandInit,
			commandBranches,
			commandLog,
			commandCommit,
			commandInspect,
			commandRestore,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tribles:", err)
		os.Exit(1)
	}
}
