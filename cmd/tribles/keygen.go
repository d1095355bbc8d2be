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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ed25519"
)

var commandKeygen = &cli.Command{
	Name:  "keygen",
	Usage: "generate a new ed25519 signing key and write it to --key",
	Flags: []cli.Flag{keyFlag},
	Action: func(ctx *cli.Context) error {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		path := ctx.String(keyFlag.Name)
		if err := os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0600); err != nil {
			return err
		}
		fmt.Println("wrote signing key to", path)
		return nil
	},
}

// loadKey reads the hex-encoded 64-byte ed25519 private key written by
// commandKeygen.
func loadKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyfile %s: %w", path, err)
	}
	seed, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding keyfile %s: %w", path, err)
	}
	if len(seed) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keyfile %s: expected %d bytes, got %d", path, ed25519.PrivateKeySize, len(seed))
	}
	return ed25519.PrivateKey(seed), nil
}
