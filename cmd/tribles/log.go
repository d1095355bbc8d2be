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
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/triblespace/tribles-go/repo"
)

var commandLog = &cli.Command{
	Name:  "log",
	Usage: "print a branch's head commit and the number of tribles across its ancestry",
	Flags: []cli.Flag{pileFlag, keyFlag, branchIDFlag},
	Action: func(ctx *cli.Context) error {
		r, closeFn, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		branchID, err := parseBranchID(ctx.String(branchIDFlag.Name))
		if err != nil {
			return err
		}
		ws, err := r.Pull(branchID)
		if err != nil {
			return err
		}
		head, ok := ws.Head()
		if !ok {
			fmt.Println("(empty branch)")
			return nil
		}
		set, err := ws.Checkout(repo.Ancestors(head))
		if err != nil {
			return err
		}
		fmt.Printf("head %s, %d tribles across its ancestry\n", hex.EncodeToString(head.Bytes()), set.Len())
		return nil
	},
}
