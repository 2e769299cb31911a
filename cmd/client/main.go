// Command client runs one auction operation against a front end.
//
// Usage:
//
//	client -as alice create "lamp" 10 50
//	client -as bob bid 1 60
//	client -as alice close 1
//	client -as bob list
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"AuctionHouse/client"
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
	addr := flag.String("addr", "localhost:8080", "Front end HTTP address")
	keysPath := flag.String("keys", "./keys", "Key directory")
	as := flag.String("as", "", "Identity to act as")
	serverID := flag.String("server-id", keystore.ServerIdentity, "Server identity name")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	flag.Parse()

	args := flag.Args()
	if *as == "" || len(args) == 0 {
		return fmt.Errorf("usage: client -as identity (create desc start reserve | bid id amount | close id | list)")
	}

	keys, err := keystore.NewDir(*keysPath)
	if err != nil {
		return err
	}

	self, err := keys.Identity(*as)
	if err != nil {
		return fmt.Errorf("load identity %s:\n%w", *as, err)
	}

	server, err := keys.Public(*serverID)
	if err != nil {
		return fmt.Errorf("load server key:\n%w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*addr, self, server)

	out, err := execute(ctx, c, args)
	if err != nil {
		return err
	}

	fmt.Println(out)

	return nil
}

// execute runs the subcommand in args.
func execute(ctx context.Context, c *client.Client, args []string) (string, error) {
	cmd, rest := args[0], args[1:]

	if cmd == "list" {
		return c.Auctions(ctx)
	}

	if err := c.Handshake(ctx); err != nil {
		return "", fmt.Errorf("handshake:\n%w", err)
	}

	switch cmd {
	case "create":
		if len(rest) != 3 {
			return "", fmt.Errorf("usage: create description start reserve")
		}

		start, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return "", fmt.Errorf("invalid start price %q", rest[1])
		}

		reserve, err := strconv.ParseFloat(rest[2], 64)
		if err != nil {
			return "", fmt.Errorf("invalid reserve price %q", rest[2])
		}

		return c.CreateAuction(ctx, rest[0], start, reserve)

	case "bid":
		if len(rest) != 2 {
			return "", fmt.Errorf("usage: bid id amount")
		}

		id, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid auction ID %q", rest[0])
		}

		amount, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return "", fmt.Errorf("invalid amount %q", rest[1])
		}

		return c.Bid(ctx, id, amount)

	case "close":
		if len(rest) != 1 {
			return "", fmt.Errorf("usage: close id")
		}

		id, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid auction ID %q", rest[0])
		}

		return c.CloseAuction(ctx, id)

	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}
