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
	"github.com/triblespace/tribles-go/trible"
	"github.com/triblespace/tribles-go/tribleset"
)

var (
	entityFlag = &cli.StringFlag{
		Name:     "entity",
		Usage:    "hex-encoded 16-byte entity id",
		Required: true,
	}
	attributeFlag = &cli.StringFlag{
		Name:     "attribute",
		Usage:    "hex-encoded 16-byte attribute id",
		Required: true,
	}
	valueFlag = &cli.StringFlag{
		Name:     "value",
		Usage:    "hex-encoded 32-byte value",
		Required: true,
	}
	messageFlag = &cli.StringFlag{
		Name:  "message",
		Usage: "commit message",
	}
)

var commandCommit = &cli.Command{
	Name:  "commit",
	Usage: "stage a single trible and push it as a new commit on a branch",
	Flags: []cli.Flag{pileFlag, keyFlag, branchIDFlag, entityFlag, attributeFlag, valueFlag, messageFlag},
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
		entity, err := parseID(ctx.String(entityFlag.Name))
		if err != nil {
			return fmt.Errorf("parsing --entity: %w", err)
		}
		attribute, err := parseID(ctx.String(attributeFlag.Name))
		if err != nil {
			return fmt.Errorf("parsing --attribute: %w", err)
		}
		value, err := parseValue(ctx.String(valueFlag.Name))
		if err != nil {
			return fmt.Errorf("parsing --value: %w", err)
		}

		ws, err := r.Pull(branchID)
		if err != nil {
			return err
		}
		content := tribleset.New()
		content.Insert(trible.New(entity, attribute, value))
		if _, err := ws.Commit(content, ctx.String(messageFlag.Name)); err != nil {
			return err
		}
		if err := ws.Push(); err != nil {
			return err
		}
		head, _ := ws.Head()
		fmt.Println(hex.EncodeToString(head.Bytes()))
		return nil
	},
}

func parseID(hexStr string) (id.ID, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return id.Nil, err
	}
	if len(raw) != 16 {
		return id.Nil, fmt.Errorf("id must be 16 bytes, got %d", len(raw))
	}
	var out id.ID
	copy(out[:], raw)
	return out, nil
}

func parseValue(hexStr string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("value must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
