package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nftstake/cmd/internal/passphrase"
	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/rpc"
)

const (
	keyPassEnv      = "NFTSTAKE_KEY_PASS"
	rpcTokenEnv     = "NFTSTAKE_RPC_TOKEN"
	rpcURLEnv       = "NFTSTAKE_RPC_URL"
	chainIDEnv      = "NFTSTAKE_CHAIN_ID"
	defaultEndpoint = "http://127.0.0.1:8547"
	defaultChainID  = 7077
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	stdout   io.Writer
	keystore string
	pass     func() (string, error)
	client   *client
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nftstake-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("rpc", envOr(rpcURLEnv, defaultEndpoint), "JSON-RPC endpoint of nftstaked")
	keystorePath := fs.String("keystore", "./wallet.json", "Path to the signer keystore")
	chainFlag := fs.String("chain-id", envOr(chainIDEnv, strconv.Itoa(defaultChainID)), "Chain id to sign for")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	chainID, err := strconv.ParseUint(*chainFlag, 10, 64)
	if err != nil || chainID == 0 {
		fmt.Fprintf(stderr, "invalid chain id %q\n", *chainFlag)
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	c := &cli{
		stdout:   stdout,
		keystore: *keystorePath,
		pass:     passphrase.NewSource(keyPassEnv).Get,
		client:   newClient(*endpoint, os.Getenv(rpcTokenEnv), chainID),
	}
	if err := c.dispatch(context.Background(), rest[0], rest[1:]); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(stderr)
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid arguments")

func need(args []string, n int, names string) error {
	if len(args) < n {
		return fmt.Errorf("%w: expected %s", errUsage, names)
	}
	return nil
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "generate-key":
		return c.generateKey()
	case "address":
		key, err := c.loadKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, key.PubKey().Address().String())
		return nil
	case "create-asset":
		if err := need(args, 3, "<mint|new> <name> <symbol> [uri]"); err != nil {
			return err
		}
		mint, err := resolveNewAddress(args[0])
		if err != nil {
			return err
		}
		uri := ""
		if len(args) > 3 {
			uri = args[3]
		}
		fmt.Fprintf(c.stdout, "Asset mint: %s\n", mint)
		return c.send(ctx, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: mint, Name: args[1], Symbol: args[2], URI: uri})
	case "init-reward-mint":
		if err := need(args, 1, "<mint|new>"); err != nil {
			return err
		}
		mint, err := resolveNewAddress(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Reward mint: %s\n", mint)
		return c.send(ctx, types.TxTypeInitRewardMint, types.InitRewardMintPayload{Mint: mint})
	case "delegate", "undelegate", "stake", "unstake", "close-record":
		if err := need(args, 1, "<asset>"); err != nil {
			return err
		}
		return c.send(ctx, assetTxTypes[command], types.AssetPayload{Asset: args[0]})
	case "claim":
		if err := need(args, 2, "<asset> <rewardMint>"); err != nil {
			return err
		}
		return c.send(ctx, types.TxTypeSendRewards, types.SendRewardsPayload{Asset: args[0], RewardMint: args[1]})
	case "record", "status", "preview":
		if err := need(args, 2, "<holder> <asset>"); err != nil {
			return err
		}
		var out json.RawMessage
		if err := c.client.call(ctx, queryMethods[command], rpc.HolderAssetParams{Holder: args[0], Asset: args[1]}, &out); err != nil {
			return err
		}
		return c.printJSON(out)
	case "balance":
		if err := need(args, 2, "<holder> <rewardMint>"); err != nil {
			return err
		}
		var out json.RawMessage
		if err := c.client.call(ctx, "stake_getRewardBalance", rpc.RewardBalanceParams{Holder: args[0], RewardMint: args[1]}, &out); err != nil {
			return err
		}
		return c.printJSON(out)
	case "events":
		params := rpc.EventsParams{}
		if len(args) > 0 {
			params.Holder = args[0]
		}
		if len(args) > 1 {
			params.Asset = args[1]
		}
		var out json.RawMessage
		if err := c.client.call(ctx, "stake_getEvents", params, &out); err != nil {
			return err
		}
		return c.printJSON(out)
	case "authorities":
		var out json.RawMessage
		if err := c.client.call(ctx, "stake_getAuthorities", nil, &out); err != nil {
			return err
		}
		return c.printJSON(out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

var assetTxTypes = map[string]types.TxType{
	"delegate":     types.TxTypeDelegateAsset,
	"undelegate":   types.TxTypeUndelegateAsset,
	"stake":        types.TxTypeStakeAsset,
	"unstake":      types.TxTypeUnstakeAsset,
	"close-record": types.TxTypeCloseRecord,
}

var queryMethods = map[string]string{
	"record":  "stake_getRecord",
	"status":  "stake_getStatus",
	"preview": "stake_previewRewards",
}

func (c *cli) generateKey() error {
	if _, err := os.Stat(c.keystore); err == nil {
		return fmt.Errorf("keystore %s already exists", c.keystore)
	}
	pass, err := c.pass()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(c.keystore, key, pass); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Generated new key and saved to %s\n", c.keystore)
	fmt.Fprintf(c.stdout, "Your address is: %s\n", key.PubKey().Address().String())
	return nil
}

func (c *cli) loadKey() (*crypto.PrivateKey, error) {
	if _, err := os.Stat(c.keystore); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run nftstake-cli generate-key first", c.keystore)
		}
		return nil, err
	}
	pass, err := c.pass()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(c.keystore, pass)
}

func (c *cli) send(ctx context.Context, txType types.TxType, payload interface{}) error {
	key, err := c.loadKey()
	if err != nil {
		return err
	}
	receipt, err := c.client.submit(ctx, key, txType, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s applied: %s\n", receipt.Type, receipt.TxHash)
	for _, evt := range receipt.Events {
		fmt.Fprintf(c.stdout, "  %s %v\n", evt.Type, evt.Attributes)
	}
	return nil
}

func (c *cli) printJSON(raw json.RawMessage) error {
	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, string(encoded))
	return nil
}

// resolveNewAddress returns raw, or a fresh random identity when raw is "new".
func resolveNewAddress(raw string) (string, error) {
	if strings.TrimSpace(raw) != "new" {
		return strings.TrimSpace(raw), nil
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	return key.PubKey().Address().String(), nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nftstake-cli [--rpc URL] [--keystore PATH] [--chain-id N] <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Keys:")
	fmt.Fprintln(w, "  generate-key                           Create a new encrypted keystore")
	fmt.Fprintln(w, "  address                                Print the keystore address")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Transactions (signed with the keystore):")
	fmt.Fprintln(w, "  create-asset <mint|new> <name> <symbol> [uri]")
	fmt.Fprintln(w, "  init-reward-mint <mint|new>")
	fmt.Fprintln(w, "  delegate <asset>                       Approve the staking authority")
	fmt.Fprintln(w, "  undelegate <asset>                     Revoke the approval")
	fmt.Fprintln(w, "  stake <asset>                          Freeze the asset and open a stake record")
	fmt.Fprintln(w, "  unstake <asset>                        Thaw the asset")
	fmt.Fprintln(w, "  claim <asset> <rewardMint>             Mint accrued rewards")
	fmt.Fprintln(w, "  close-record <asset>                   Close the record and refund its deposit")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Queries:")
	fmt.Fprintln(w, "  record|status|preview <holder> <asset>")
	fmt.Fprintln(w, "  balance <holder> <rewardMint>")
	fmt.Fprintln(w, "  events [holder] [asset]                Indexed event history")
	fmt.Fprintln(w, "  authorities")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Environment: %s, %s, %s, %s\n", rpcURLEnv, rpcTokenEnv, chainIDEnv, keyPassEnv)
}
