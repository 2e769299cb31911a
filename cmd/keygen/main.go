// Command keygen creates identities in a key directory.
//
// Usage:
//
//	keygen -keys ./keys SERVER alice bob
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/keystore"
	"AuctionHouse/internal/logger"
)

func main() {
	logger.Init()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	keysPath := flag.String("keys", "./keys", "Key directory")
	force := flag.Bool("force", false, "Overwrite existing identities")
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: keygen [-keys dir] [-force] identity...")
	}

	dir, err := keystore.NewDir(*keysPath)
	if err != nil {
		return err
	}

	for _, name := range names {
		created, err := generate(dir, name, *force)
		if err != nil {
			return fmt.Errorf("identity %s:\n%w", name, err)
		}

		if created {
			logger.Info("identity created", "name", name, "dir", *keysPath)
		} else {
			logger.Info("identity exists, skipped", "name", name)
		}
	}

	return nil
}

// generate creates name in dir unless it already has private keys.
func generate(dir *keystore.Dir, name string, force bool) (bool, error) {
	if !force {
		_, err := dir.Identity(name)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, keystore.ErrUnknownIdentity) {
			return false, err
		}
	}

	id, err := crypto.GenerateIdentity(name)
	if err != nil {
		return false, err
	}

	if err := dir.Save(id); err != nil {
		return false, err
	}

	return true, nil
}
