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
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/triblespace/tribles-go/pile"
)

var commandRestore = &cli.Command{
	Name:  "restore",
	Usage: "repair a crash-damaged pile by truncating its unapplied, corrupt tail",
	Flags: []cli.Flag{pileFlag},
	Action: func(ctx *cli.Context) error {
		p, err := pile.Open(ctx.String(pileFlag.Name))
		if err != nil {
			return err
		}
		defer p.Close()
		before := p.AppliedLength()
		if err := p.Restore(); err != nil {
			return err
		}
		fmt.Printf("restored; applied length now %d bytes (was %d)\n", p.AppliedLength(), before)
		return nil
	},
}
