package client

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/musk-sdk/musk/muskcfg"
	"github.com/musk-sdk/musk/spend"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	// minConf is the minimum number of confirmations of listed UTXOs.
	minConf = 1

	// maxConf is the maximum number of confirmations of listed UTXOs.
	maxConf = 9999999
)

// RpcClient talks to an elementsd node over its JSON-RPC interface. All calls
// are sent to the configured wallet endpoint.
type RpcClient struct {
	cfg    *muskcfg.Config
	client *rpcclient.Client

	genesisMtx  sync.Mutex
	genesisHash *chainhash.Hash
}

// NewRpcClient creates a client for the node described by the config. No
// connection is made until the first call.
func NewRpcClient(cfg *muskcfg.Config) (*RpcClient, error) {
	walletURL, err := url.Parse(cfg.WalletURL())
	if err != nil {
		return nil, fmt.Errorf("invalid rpc url: %w", err)
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         walletURL.Host + walletURL.Path,
		User:         cfg.Rpc.User,
		Pass:         cfg.Rpc.Password,
		DisableTLS:   walletURL.Scheme != "https",
		HTTPPostMode: true,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create rpc client: %w", err)
	}

	return &RpcClient{
		cfg:    cfg,
		client: client,
	}, nil
}

// Close shuts down the underlying client.
func (c *RpcClient) Close() {
	c.client.Shutdown()
}

// call sends the request and decodes the result into result, which may be
// nil if the result isn't needed.
func (c *RpcClient) call(method string, result interface{},
	params ...interface{}) error {

	rawParams := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		raw, err := json.Marshal(param)
		if err != nil {
			return fmt.Errorf("%w: %s: unable to encode params: %w",
				ErrRPC, method, err)
		}
		rawParams = append(rawParams, raw)
	}

	log.Tracef("Calling %s with %d params", method, len(rawParams))

	resp, err := c.client.RawRequest(method, rawParams)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRPC, method, err)
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp, result); err != nil {
		return fmt.Errorf("%w: %s: unable to decode result: %w",
			ErrRPC, method, err)
	}

	return nil
}

// callHash runs a call that returns a single hash in hex.
func (c *RpcClient) callHash(method string,
	params ...interface{}) (chainhash.Hash, error) {

	var hashStr string
	if err := c.call(method, &hashStr, params...); err != nil {
		return chainhash.Hash{}, err
	}

	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %s: invalid hash "+
			"%q: %w", ErrRPC, method, hashStr, err)
	}

	return *hash, nil
}

// SendToAddress sends amount satoshis of the policy asset to the address.
func (c *RpcClient) SendToAddress(addr string,
	amount uint64) (chainhash.Hash, error) {

	btc := btcutil.Amount(amount).ToBTC()

	txid, err := c.callHash("sendtoaddress", addr, btc)
	if err != nil {
		return txid, err
	}

	log.Debugf("Sent %v to %v in tx %v", btcutil.Amount(amount), addr,
		txid)

	return txid, nil
}

type getTransactionResult struct {
	Hex string `json:"hex"`
}

// GetTransaction fetches a wallet transaction by id.
func (c *RpcClient) GetTransaction(
	txid chainhash.Hash) (*transaction.Transaction, error) {

	var result getTransactionResult
	err := c.call("gettransaction", &result, txid.String())
	switch {
	case isNotFound(err):
		return nil, fmt.Errorf("%w: transaction %v", ErrNotFound, txid)

	case err != nil:
		return nil, err
	}

	tx, err := transaction.NewTxFromHex(result.Hex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid transaction hex: %w",
			ErrRPC, err)
	}

	return tx, nil
}

// isNotFound returns true if the error is the node's invalid address or key
// error, which it returns for unknown transactions.
func isNotFound(err error) bool {
	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}

	return rpcErr.Code == btcjson.ErrRPCInvalidAddressOrKey
}

// Broadcast submits the transaction to the network.
func (c *RpcClient) Broadcast(
	tx *transaction.Transaction) (chainhash.Hash, error) {

	txHex, err := tx.ToHex()
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("unable to encode "+
			"transaction: %w", err)
	}

	txid, err := c.callHash("sendrawtransaction", txHex)
	if err != nil {
		return txid, err
	}

	log.Debugf("Broadcast transaction %v", txid)

	return txid, nil
}

// GenerateBlocks mines count blocks to a fresh wallet address.
func (c *RpcClient) GenerateBlocks(count uint32) ([]chainhash.Hash, error) {
	addr, err := c.GetNewAddress()
	if err != nil {
		return nil, err
	}

	var hashStrs []string
	if err := c.call("generatetoaddress", &hashStrs, count, addr); err != nil {
		return nil, err
	}

	hashes := make([]chainhash.Hash, 0, len(hashStrs))
	for _, hashStr := range hashStrs {
		hash, err := chainhash.NewHashFromStr(hashStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid block hash %q: %w",
				ErrRPC, hashStr, err)
		}
		hashes = append(hashes, *hash)
	}

	log.Debugf("Generated %d blocks", len(hashes))

	return hashes, nil
}

// listUnspentResult is a single entry of the listunspent response. The
// blinders and commitments are only set for confidential outputs.
type listUnspentResult struct {
	TxID             string  `json:"txid"`
	Vout             uint32  `json:"vout"`
	Amount           float64 `json:"amount"`
	ScriptPubKey     string  `json:"scriptPubKey"`
	Asset            string  `json:"asset"`
	AmountBlinder    string  `json:"amountblinder"`
	AssetBlinder     string  `json:"assetblinder"`
	AmountCommitment string  `json:"amountcommitment"`
	AssetCommitment  string  `json:"assetcommitment"`
}

// GetUtxos lists the confirmed UTXOs of the wallet paying to the address.
func (c *RpcClient) GetUtxos(addr string) ([]*utxo.Utxo, error) {
	var results []listUnspentResult
	err := c.call("listunspent", &results, minConf, maxConf, []string{addr})
	if err != nil {
		return nil, err
	}

	utxos := make([]*utxo.Utxo, 0, len(results))
	for _, result := range results {
		u, err := result.toUtxo()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid utxo %s:%d: %w",
				ErrRPC, result.TxID, result.Vout, err)
		}
		utxos = append(utxos, u)
	}

	return utxos, nil
}

// toUtxo converts the entry into a UTXO. Entries with a non-zero amount
// blinder and both commitments become confidential UTXOs.
func (r *listUnspentResult) toUtxo() (*utxo.Utxo, error) {
	txid, err := chainhash.NewHashFromStr(r.TxID)
	if err != nil {
		return nil, err
	}

	amount, err := btcutil.NewAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, fmt.Errorf("negative amount %v", amount)
	}

	script, err := hex.DecodeString(r.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	u := &utxo.Utxo{
		TxID:   *txid,
		Vout:   r.Vout,
		Amount: uint64(amount),
		Script: script,
	}

	if r.Asset != "" {
		id, err := utxo.ParseAssetID(r.Asset)
		if err != nil {
			return nil, err
		}
		u.Asset = utxo.ExplicitAsset(id)
	}

	if r.AmountCommitment == "" || r.AssetCommitment == "" {
		return u, nil
	}

	secrets := &utxo.Secrets{}
	fields := []struct {
		hex string
		dst []byte
	}{
		{r.AmountBlinder, secrets.AmountBlinder[:]},
		{r.AssetBlinder, secrets.AssetBlinder[:]},
		{r.AmountCommitment, secrets.AmountCommitment[:]},
		{r.AssetCommitment, secrets.AssetCommitment[:]},
	}
	for _, field := range fields {
		b, err := hex.DecodeString(field.hex)
		if err != nil {
			return nil, err
		}
		if len(b) != len(field.dst) {
			return nil, fmt.Errorf("expected %d bytes, got %d",
				len(field.dst), len(b))
		}
		copy(field.dst, b)
	}

	if secrets.AmountBlinder != [utxo.BlinderSize]byte{} {
		u.Secrets = secrets
	}

	return u, nil
}

// GetNewAddress returns a fresh address of the wallet.
func (c *RpcClient) GetNewAddress() (string, error) {
	var addr string
	if err := c.call("getnewaddress", &addr); err != nil {
		return "", err
	}

	return addr, nil
}

// ImportAddress adds the address to the wallet as watch-only without
// rescanning.
func (c *RpcClient) ImportAddress(addr string) error {
	return c.call("importaddress", nil, addr, "", false)
}

// ImportBlindingKey imports the private blinding key of the confidential
// address.
func (c *RpcClient) ImportBlindingKey(addr string,
	key *btcec.PrivateKey) error {

	return c.call(
		"importblindingkey", nil, addr, hex.EncodeToString(key.Serialize()),
	)
}

// BlindRawTransaction blinds the transaction's outputs with the node wallet.
func (c *RpcClient) BlindRawTransaction(tx *transaction.Transaction,
	params *spend.BlindingParams) (*transaction.Transaction, error) {

	if params.Len() != len(tx.Inputs) {
		return nil, fmt.Errorf("got blinding params for %d inputs, "+
			"transaction has %d", params.Len(), len(tx.Inputs))
	}

	txHex, err := tx.ToHex()
	if err != nil {
		return nil, fmt.Errorf("unable to encode transaction: %w", err)
	}

	amounts := make([]float64, 0, len(params.Amounts))
	for _, amount := range params.Amounts {
		amounts = append(amounts, btcutil.Amount(amount).ToBTC())
	}

	var blindedHex string
	err = c.call(
		"rawblindrawtransaction", &blindedHex, txHex,
		params.AmountBlinders, amounts, params.AssetIDs,
		params.AssetBlinders,
	)
	if err != nil {
		return nil, err
	}

	blinded, err := transaction.NewTxFromHex(blindedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid blinded transaction: %w",
			ErrRPC, err)
	}

	return blinded, nil
}

// GenesisHash returns the configured genesis hash, or queries the node for
// it. The result is cached.
func (c *RpcClient) GenesisHash() (chainhash.Hash, error) {
	c.genesisMtx.Lock()
	defer c.genesisMtx.Unlock()

	if c.genesisHash != nil {
		return *c.genesisHash, nil
	}

	hash, err := c.cfg.GenesisHash()
	switch {
	case errors.Is(err, muskcfg.ErrMissingGenesisHash):
		hash, err = c.callHash("getblockhash", 0)
		if err != nil {
			return hash, err
		}

	case err != nil:
		return hash, err
	}

	c.genesisHash = &hash

	return hash, nil
}

// TestConnection makes sure the node can be reached.
func (c *RpcClient) TestConnection() error {
	_, err := c.GetBlockchainInfo()
	return err
}

// GetBlockchainInfo returns the node's chain state as a generic map, since
// its fields differ between node versions.
func (c *RpcClient) GetBlockchainInfo() (map[string]interface{}, error) {
	var info map[string]interface{}
	if err := c.call("getblockchaininfo", &info); err != nil {
		return nil, err
	}

	return info, nil
}

// GetBlockCount returns the height of the node's best chain.
func (c *RpcClient) GetBlockCount() (int64, error) {
	var count int64
	if err := c.call("getblockcount", &count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetBalance returns the wallet balance per asset label. Nodes that report a
// single number are mapped to the "bitcoin" label.
func (c *RpcClient) GetBalance() (map[string]btcutil.Amount, error) {
	var raw json.RawMessage
	if err := c.call("getbalance", &raw); err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	var single float64
	if err := json.Unmarshal(raw, &single); err == nil {
		balances["bitcoin"] = single
	} else if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, fmt.Errorf("%w: getbalance: unable to decode "+
			"result: %w", ErrRPC, err)
	}

	amounts := make(map[string]btcutil.Amount, len(balances))
	for label, balance := range balances {
		amount, err := btcutil.NewAmount(balance)
		if err != nil {
			return nil, fmt.Errorf("%w: getbalance: %w", ErrRPC, err)
		}
		amounts[label] = amount
	}

	return amounts, nil
}

var _ Client = (*RpcClient)(nil)
