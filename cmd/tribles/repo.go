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
	"github.com/urfave/cli/v2"

	"github.com/triblespace/tribles-go/pile"
	"github.com/triblespace/tribles-go/repo"
)

// openRepo opens the pile at --pile, restores a possibly crash-damaged
// tail, loads the signing key at --key, and returns a Repository plus a
// close func the caller must defer. If the key cannot be loaded, the
// pile is closed and loadKey's error is returned.
func openRepo(ctx *cli.Context) (*repo.Repository, func() error, error) {
	p, err := pile.Open(ctx.String(pileFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	if err := p.Restore(); err != nil {
		p.Close()
		return nil, nil, err
	}
	key, err := loadKey(ctx.String(keyFlag.Name))
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return repo.New(p, key), p.Close, nil
}
