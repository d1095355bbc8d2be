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

	"github.com/triblespace/tribles-go/id"
)

var branchNameFlag = &cli.StringFlag{
	Name:     "name",
	Usage:    "branch name",
	Required: true,
}

var branchIDFlag = &cli.StringFlag{
	Name:     "branch",
	Usage:    "hex-encoded 16-byte branch id",
	Required: true,
}

func parseBranchID(hexStr string) (id.ID, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return id.Nil, fmt.Errorf("decoding branch id: %w", err)
	}
	if len(raw) != 16 {
		return id.Nil, fmt.Errorf("branch id must be 16 bytes, got %d", len(raw))
	}
	var out id.ID
	copy(out[:], raw)
	return out, nil
}

var commandBranches = &cli.Command{
	Name:  "branches",
	Usage: "create or list branches",
	Flags: []cli.Flag{pileFlag, keyFlag},
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create a new, empty branch",
			Flags: []cli.Flag{pileFlag, keyFlag, branchNameFlag},
			Action: func(ctx *cli.Context) error {
				r, closeFn, err := openRepo(ctx)
				if err != nil {
					return err
				}
				defer closeFn()
				branchID, err := r.CreateBranch(ctx.String(branchNameFlag.Name))
				if err != nil {
					return err
				}
				fmt.Println(hex.EncodeToString(branchID[:]))
				return nil
			},
		},
		{
			Name:  "list",
			Usage: "list every branch id known to the pile",
			Flags: []cli.Flag{pileFlag, keyFlag},
			Action: func(ctx *cli.Context) error {
				r, closeFn, err := openRepo(ctx)
				if err != nil {
					return err
				}
				defer closeFn()
				r.Each(func(branchID id.ID) {
					fmt.Println(branchID.String())
				})
				return nil
			},
		},
	},
}
