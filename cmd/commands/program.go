package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/client"
	"github.com/musk-sdk/musk/compiler"
	"github.com/musk-sdk/musk/muskcfg"
	"github.com/musk-sdk/musk/program"
	"github.com/musk-sdk/musk/spend"
	"github.com/musk-sdk/musk/utxo"
	"github.com/urfave/cli"
	"github.com/vulpemventures/go-elements/address"
)

const (
	cmrName = "cmr"

	programName = "program"

	witnessName = "witness"

	blindingKeyName = "blinding_key"

	utxoName = "utxo"

	destName = "dest"

	feeName = "fee"

	broadcastName = "broadcast"
)

var (
	cmrFlag = cli.StringFlag{
		Name:  cmrName,
		Usage: "the commitment root of the compiled program in hex",
	}

	utxoFlag = cli.StringFlag{
		Name:  utxoName,
		Usage: "the program output to spend, as txid:vout",
	}

	spendFlags = []cli.Flag{
		cmrFlag,
		utxoFlag,
		cli.StringFlag{
			Name:  destName,
			Usage: "the destination address",
		},
		cli.Uint64Flag{
			Name:  amtName,
			Usage: "the amount sent to the destination in satoshis",
		},
		cli.Uint64Flag{
			Name:  feeName,
			Usage: "the fee in satoshis",
		},
	}
)

func programCommands(actionOpts ...ActionOption) []cli.Command {
	return []cli.Command{
		{
			Name:      "program",
			ShortName: "p",
			Usage:     "Fund and spend compiled programs.",
			Category:  "Programs",
			Subcommands: []cli.Command{
				{
					Name:      "address",
					ShortName: "a",
					Usage:     "Derive the address of a program.",
					Flags: []cli.Flag{
						cmrFlag,
						cli.StringFlag{
							Name: blindingKeyName,
							Usage: "optional, the compressed " +
								"blinding public key in hex",
						},
					},
					Action: NewWrappedAction(
						programAddress, actionOpts...,
					),
				},
				{
					Name:      "sighash",
					ShortName: "s",
					Usage:     "Compute the signature hash of a spend.",
					Description: "Compute the digest a program " +
						"signature must commit to when spending " +
						"the output to the destination.",
					Flags: spendFlags,
					Action: NewWrappedAction(
						programSighash, actionOpts...,
					),
				},
				{
					Name:  "spend",
					Usage: "Spend a program output.",
					Description: "Attach the externally satisfied " +
						"program to a transaction spending the " +
						"output to the destination.",
					Flags: append([]cli.Flag{
						cli.StringFlag{
							Name:  programName,
							Usage: "the serialized program in hex",
						},
						cli.StringFlag{
							Name:  witnessName,
							Usage: "the serialized witness in hex",
						},
						cli.BoolFlag{
							Name:  broadcastName,
							Usage: "broadcast the transaction",
						},
					}, spendFlags...),
					Action: NewWrappedAction(
						programSpend, actionOpts...,
					),
				},
				{
					Name:      "blindingparams",
					ShortName: "b",
					Usage:     "Show the blinding parameters of inputs.",
					Flags: []cli.Flag{
						cmrFlag,
						cli.StringSliceFlag{
							Name: utxoName,
							Usage: "a program output to spend, " +
								"as txid:vout, can be repeated",
						},
					},
					Action: NewWrappedAction(
						blindingParams, actionOpts...,
					),
				},
			},
		},
	}
}

// parseArtifact reads the precompiled program from the flags. Program and
// witness may be empty if only the commitment root is needed.
func parseArtifact(ctx *cli.Context) (*compiler.Precompiled, error) {
	cmr, err := compiler.ParseCMR(ctx.String(cmrName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", cmrName, err)
	}

	prog, err := hex.DecodeString(ctx.String(programName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", programName, err)
	}

	witness, err := hex.DecodeString(ctx.String(witnessName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", witnessName, err)
	}

	return &compiler.Precompiled{
		Root:    cmr,
		Program: prog,
		Witness: witness,
	}, nil
}

// parseOutpoint parses an outpoint in txid:vout form.
func parseOutpoint(s string) (chainhash.Hash, uint32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return chainhash.Hash{}, 0, fmt.Errorf("outpoint %q must be "+
			"txid:vout", s)
	}

	txid, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("invalid txid: %w", err)
	}

	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("invalid vout: %w", err)
	}

	return *txid, uint32(vout), nil
}

// findUtxo looks the outpoint up among the wallet's UTXOs of the program
// address first, so confidential outputs come with their secrets. Otherwise
// the output is read from the funding transaction, which only works for
// explicit outputs.
func findUtxo(c client.Client, cfg *muskcfg.Config,
	prog *program.InstantiatedProgram, outpoint string) (*utxo.Utxo, error) {

	txid, vout, err := parseOutpoint(outpoint)
	if err != nil {
		return nil, err
	}

	net, err := cfg.NetworkParams()
	if err != nil {
		return nil, err
	}
	addr, err := prog.Address(net)
	if err != nil {
		return nil, err
	}

	utxos, err := c.GetUtxos(addr)
	if err != nil {
		return nil, fmt.Errorf("unable to list utxos: %w", err)
	}
	for _, u := range utxos {
		if u.TxID == txid && u.Vout == vout {
			return u, nil
		}
	}

	tx, err := c.GetTransaction(txid)
	if err != nil {
		return nil, err
	}

	return utxo.FromTxOutput(tx, vout)
}

type programAddressResp struct {
	CMR                 string `json:"cmr"`
	Address             string `json:"address"`
	ConfidentialAddress string `json:"confidential_address,omitempty"`
	ScriptPubKey        string `json:"script_pubkey"`
}

func programAddress(ctx *cli.Context, cfg *muskcfg.Config,
	_ client.Client) (interface{}, error) {

	artifact, err := parseArtifact(ctx)
	if err != nil {
		return nil, err
	}

	prog, err := program.FromArtifact(artifact)
	if err != nil {
		return nil, err
	}

	net, err := cfg.NetworkParams()
	if err != nil {
		return nil, err
	}

	addr, err := prog.Address(net)
	if err != nil {
		return nil, err
	}
	pkScript, err := prog.ScriptPubKey()
	if err != nil {
		return nil, err
	}

	resp := &programAddressResp{
		CMR:          prog.CMR().String(),
		Address:      addr,
		ScriptPubKey: hex.EncodeToString(pkScript),
	}

	if keyHex := ctx.String(blindingKeyName); keyHex != "" {
		keyBytes, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w",
				blindingKeyName, err)
		}
		key, err := btcec.ParsePubKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w",
				blindingKeyName, err)
		}

		resp.ConfidentialAddress, err = prog.ConfidentialAddress(
			net, key,
		)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// spendRequest holds the parsed inputs shared by sighash and spend.
type spendRequest struct {
	prog        *program.InstantiatedProgram
	utxo        *utxo.Utxo
	asset       utxo.AssetID
	destination []byte
	amount      uint64
	fee         uint64
	genesisHash chainhash.Hash
}

func parseSpendRequest(ctx *cli.Context, cfg *muskcfg.Config,
	c client.Client) (*spendRequest, error) {

	artifact, err := parseArtifact(ctx)
	if err != nil {
		return nil, err
	}
	prog, err := program.FromArtifact(artifact)
	if err != nil {
		return nil, err
	}

	destination, err := address.ToOutputScript(ctx.String(destName))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", destName, err)
	}

	u, err := findUtxo(c, cfg, prog, ctx.String(utxoName))
	if err != nil {
		return nil, err
	}
	asset, ok := u.Asset.ExplicitID()
	if !ok {
		return nil, fmt.Errorf("%w: %v has a %v asset",
			spend.ErrInvalidUtxo, u, u.Asset.Kind)
	}

	genesisHash, err := c.GenesisHash()
	if err != nil {
		return nil, err
	}

	return &spendRequest{
		prog:        prog,
		utxo:        u,
		asset:       asset,
		destination: destination,
		amount:      ctx.Uint64(amtName),
		fee:         ctx.Uint64(feeName),
		genesisHash: genesisHash,
	}, nil
}

type sighashResp struct {
	Sighash string `json:"sighash"`
}

func programSighash(ctx *cli.Context, cfg *muskcfg.Config,
	c client.Client) (interface{}, error) {

	req, err := parseSpendRequest(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	b, err := spend.NewBuilder(
		req.prog, []*utxo.Utxo{req.utxo},
		spend.WithGenesisHash(req.genesisHash),
	)
	if err != nil {
		return nil, err
	}
	err = b.AddOutputSimple(req.destination, req.amount, req.asset)
	if err != nil {
		return nil, err
	}
	if err := b.AddFee(req.fee, req.asset); err != nil {
		return nil, err
	}

	digest, err := b.SighashAll(0)
	if err != nil {
		return nil, err
	}

	return &sighashResp{Sighash: hex.EncodeToString(digest[:])}, nil
}

type spendResp struct {
	TxID string `json:"txid"`
	Hex  string `json:"hex"`

	Broadcast bool `json:"broadcast"`
}

func programSpend(ctx *cli.Context, cfg *muskcfg.Config,
	c client.Client) (interface{}, error) {

	req, err := parseSpendRequest(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	tx, err := spend.SimpleSpend(
		req.prog, req.utxo, req.destination, req.amount, req.fee,
		req.genesisHash, nil,
	)
	if err != nil {
		return nil, err
	}

	txHex, err := tx.ToHex()
	if err != nil {
		return nil, err
	}

	resp := &spendResp{
		TxID: tx.TxHash().String(),
		Hex:  txHex,
	}

	if ctx.Bool(broadcastName) {
		if _, err := c.Broadcast(tx); err != nil {
			return nil, fmt.Errorf("unable to broadcast: %w", err)
		}
		resp.Broadcast = true
	}

	return resp, nil
}

func blindingParams(ctx *cli.Context, cfg *muskcfg.Config,
	c client.Client) (interface{}, error) {

	artifact, err := parseArtifact(ctx)
	if err != nil {
		return nil, err
	}
	prog, err := program.FromArtifact(artifact)
	if err != nil {
		return nil, err
	}

	outpoints := ctx.StringSlice(utxoName)
	utxos := make([]*utxo.Utxo, 0, len(outpoints))
	for _, outpoint := range outpoints {
		u, err := findUtxo(c, cfg, prog, outpoint)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u)
	}

	b, err := spend.NewBuilder(prog, utxos)
	if err != nil {
		return nil, err
	}

	return b.BlindingParams(), nil
}
