// Command rpscli signs contract messages and queries a node over JSON-RPC.
//
// Usage:
//
//	rpscli [global flags] <command> [args]
//
// Commands:
//
//	genkey                      create a keystore
//	instantiate                 become contract owner
//	start <opponent> <move>     start (or restart) a game as host
//	submit <host> <move>        answer the game hosted by host
//	move <host>                 show the host's committed move
//	opponent <host>             show who host invited
//	owner                       show the contract owner
//	game <host>                 show the full game record
//	history <host>              list resolved rounds hosted by host
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/wallet"
)

type cli struct {
	client   *rpc.Client
	keyPath  string
	password string
}

func main() {
	_ = godotenv.Load()

	url := flag.String("rpc", envOr("RPS_RPC_URL", "http://localhost:8545"), "node RPC URL")
	token := flag.String("token", os.Getenv("RPS_RPC_AUTH_TOKEN"), "RPC bearer token")
	keyPath := flag.String("key", envOr("RPS_KEY", "player.key"), "path to keystore file")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	c := &cli{
		client:   rpc.NewClient(*url, *token),
		keyPath:  *keyPath,
		password: os.Getenv("RPS_PASSWORD"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := c.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var rpcErr *rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.Kind != "" {
			fmt.Fprintln(os.Stderr, "kind:", rpcErr.Kind)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: rpscli [flags] <genkey|instantiate|start|submit|move|opponent|owner|game|history> [args]\n")
	flag.PrintDefaults()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "genkey":
		return c.genKey()
	case "instantiate":
		return c.send(ctx, func(w *wallet.Wallet, chainID string, nonce uint64) (*core.Transaction, error) {
			return w.Instantiate(chainID, nonce)
		})
	case "start":
		if len(args) != 2 {
			return errors.New("usage: start <opponent> <move>")
		}
		move, err := core.ParseMove(args[1])
		if err != nil {
			return err
		}
		return c.send(ctx, func(w *wallet.Wallet, chainID string, nonce uint64) (*core.Transaction, error) {
			return w.StartGame(chainID, args[0], move, nonce)
		})
	case "submit":
		if len(args) != 2 {
			return errors.New("usage: submit <host> <move>")
		}
		move, err := core.ParseMove(args[1])
		if err != nil {
			return err
		}
		return c.send(ctx, func(w *wallet.Wallet, chainID string, nonce uint64) (*core.Transaction, error) {
			return w.SubmitMove(chainID, args[0], move, nonce)
		})
	case "move":
		host, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		move, err := c.client.GetMove(ctx, host)
		if err != nil {
			return err
		}
		fmt.Println(move)
		return nil
	case "opponent":
		host, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		opp, err := c.client.GetOpponent(ctx, host)
		if err != nil {
			return err
		}
		fmt.Println(opp)
		return nil
	case "owner":
		owner, err := c.client.GetOwner(ctx)
		if err != nil {
			return err
		}
		fmt.Println(owner)
		return nil
	case "game":
		host, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		g, err := c.client.GetGame(ctx, host)
		if err != nil {
			return err
		}
		return printJSON(g)
	case "history":
		host, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		results, err := c.client.Results(ctx, host)
		if err != nil {
			return err
		}
		return printJSON(results)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s <host>", cmd)
	}
	return args[0], nil
}

func (c *cli) genKey() error {
	if _, err := os.Stat(c.keyPath); err == nil {
		return fmt.Errorf("%s already exists", c.keyPath)
	}
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(c.keyPath, c.password, w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("identity: %s\nsaved to: %s\n", w.PubKey(), c.keyPath)
	return nil
}

type txBuilder func(w *wallet.Wallet, chainID string, nonce uint64) (*core.Transaction, error)

// send loads the key, fetches chain ID and nonce from the node, then signs
// and submits the message built by build.
func (c *cli) send(ctx context.Context, build txBuilder) error {
	priv, err := wallet.LoadKey(c.keyPath, c.password)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}
	w := wallet.New(priv)

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return err
	}
	nonce, err := c.client.Nonce(ctx, w.PubKey())
	if err != nil {
		return err
	}
	tx, err := build(w, chainID, nonce)
	if err != nil {
		return err
	}
	res, err := c.client.SendTx(ctx, tx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
