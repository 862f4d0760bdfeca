package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/client"
	"github.com/musk-sdk/musk/muskcfg"
	"github.com/musk-sdk/musk/utxo"
	"github.com/urfave/cli"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	addrName = "addr"

	amtName = "amt"

	txidName = "txid"

	txHexName = "tx"

	numBlocksName = "num_blocks"
)

func nodeCommands(actionOpts ...ActionOption) []cli.Command {
	return []cli.Command{
		{
			Name:      "node",
			ShortName: "n",
			Usage:     "Interact with the Elements node.",
			Category:  "Node",
			Subcommands: []cli.Command{
				{
					Name:      "getnewaddress",
					ShortName: "a",
					Usage:     "Get a fresh wallet address.",
					Action: NewWrappedAction(
						getNewAddress, actionOpts...,
					),
				},
				{
					Name:      "sendtoaddress",
					ShortName: "s",
					Usage:     "Fund an address.",
					Description: "Send the given amount of the " +
						"policy asset to an address, " +
						"typically a program address.",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  addrName,
							Usage: "the address to fund",
						},
						cli.Uint64Flag{
							Name:  amtName,
							Usage: "the amount in satoshis",
						},
					},
					Action: NewWrappedAction(
						sendToAddress, actionOpts...,
					),
				},
				{
					Name:      "listunspent",
					ShortName: "u",
					Usage:     "List the UTXOs of an address.",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  addrName,
							Usage: "the address to list",
						},
					},
					Action: NewWrappedAction(
						listUnspent, actionOpts...,
					),
				},
				{
					Name:      "generate",
					ShortName: "g",
					Usage:     "Mine blocks on a test network.",
					Flags: []cli.Flag{
						cli.Uint64Flag{
							Name:  numBlocksName,
							Usage: "the number of blocks",
							Value: 1,
						},
					},
					Action: NewWrappedAction(
						generate, actionOpts...,
					),
				},
				{
					Name:      "gettransaction",
					ShortName: "t",
					Usage:     "Fetch a transaction by id.",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  txidName,
							Usage: "the transaction id",
						},
					},
					Action: NewWrappedAction(
						getTransaction, actionOpts...,
					),
				},
				{
					Name:      "broadcast",
					ShortName: "b",
					Usage:     "Broadcast a raw transaction.",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  txHexName,
							Usage: "the transaction in hex",
						},
					},
					Action: NewWrappedAction(
						broadcast, actionOpts...,
					),
				},
				{
					Name:  "genesis",
					Usage: "Show the genesis block hash.",
					Action: NewWrappedAction(
						genesis, actionOpts...,
					),
				},
			},
		},
	}
}

type addressResp struct {
	Address string `json:"address"`
}

func getNewAddress(_ *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	addr, err := c.GetNewAddress()
	if err != nil {
		return nil, fmt.Errorf("unable to get address: %w", err)
	}

	return &addressResp{Address: addr}, nil
}

type txidResp struct {
	TxID string `json:"txid"`
}

func sendToAddress(ctx *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	addr := ctx.String(addrName)
	amt := ctx.Uint64(amtName)
	if addr == "" || amt == 0 {
		return nil, fmt.Errorf("%s and %s must be set", addrName,
			amtName)
	}

	txid, err := c.SendToAddress(addr, amt)
	if err != nil {
		return nil, fmt.Errorf("unable to send: %w", err)
	}

	return &txidResp{TxID: txid.String()}, nil
}

type utxoResp struct {
	Outpoint     string `json:"outpoint"`
	Amount       uint64 `json:"amount"`
	Asset        string `json:"asset"`
	ScriptPubKey string `json:"script_pubkey"`
	Confidential bool   `json:"confidential"`
}

func newUtxoResp(u *utxo.Utxo) *utxoResp {
	asset := u.Asset.Kind.String()
	if id, ok := u.Asset.ExplicitID(); ok {
		asset = id.String()
	}

	return &utxoResp{
		Outpoint:     u.String(),
		Amount:       u.Amount,
		Asset:        asset,
		ScriptPubKey: hex.EncodeToString(u.Script),
		Confidential: u.IsConfidential(),
	}
}

type listUnspentResp struct {
	Utxos []*utxoResp `json:"utxos"`
}

func listUnspent(ctx *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	addr := ctx.String(addrName)
	if addr == "" {
		return nil, fmt.Errorf("%s must be set", addrName)
	}

	utxos, err := c.GetUtxos(addr)
	if err != nil {
		return nil, fmt.Errorf("unable to list utxos: %w", err)
	}

	resp := &listUnspentResp{
		Utxos: make([]*utxoResp, 0, len(utxos)),
	}
	for _, u := range utxos {
		resp.Utxos = append(resp.Utxos, newUtxoResp(u))
	}

	return resp, nil
}

type generateResp struct {
	Blocks []string `json:"blocks"`
}

func generate(ctx *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	hashes, err := c.GenerateBlocks(uint32(ctx.Uint64(numBlocksName)))
	if err != nil {
		return nil, fmt.Errorf("unable to generate blocks: %w", err)
	}

	resp := &generateResp{
		Blocks: make([]string, 0, len(hashes)),
	}
	for _, hash := range hashes {
		resp.Blocks = append(resp.Blocks, hash.String())
	}

	return resp, nil
}

type transactionResp struct {
	TxID string `json:"txid"`
	Hex  string `json:"hex"`
}

func getTransaction(ctx *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	txid, err := chainhash.NewHashFromStr(ctx.String(txidName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", txidName, err)
	}

	tx, err := c.GetTransaction(*txid)
	if err != nil {
		return nil, err
	}

	txHex, err := tx.ToHex()
	if err != nil {
		return nil, err
	}

	return &transactionResp{
		TxID: tx.TxHash().String(),
		Hex:  txHex,
	}, nil
}

func broadcast(ctx *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	tx, err := transaction.NewTxFromHex(ctx.String(txHexName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", txHexName, err)
	}

	txid, err := c.Broadcast(tx)
	if err != nil {
		return nil, fmt.Errorf("unable to broadcast: %w", err)
	}

	return &txidResp{TxID: txid.String()}, nil
}

type genesisResp struct {
	GenesisHash string `json:"genesis_hash"`
}

func genesis(_ *cli.Context, _ *muskcfg.Config,
	c client.Client) (interface{}, error) {

	hash, err := c.GenesisHash()
	if err != nil {
		return nil, err
	}

	return &genesisResp{GenesisHash: hash.String()}, nil
}
