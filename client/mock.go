package client

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/internal/pedersen"
	"github.com/musk-sdk/musk/spend"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/address"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/transaction"
	"lukechampine.com/frand"
)

// MockClient is an in-memory node for tests. Funding transactions pay the
// network's policy asset and are confirmed immediately.
type MockClient struct {
	net *network.Network

	mu           sync.Mutex
	transactions map[chainhash.Hash]*transaction.Transaction
	utxos        map[string][]*utxo.Utxo
	watched      map[string]struct{}
	blindingKeys map[string]*btcec.PrivateKey
	blockCount   uint64
	genesisHash  chainhash.Hash
}

// NewMockClient creates an empty mock node on the given network with a
// random genesis hash.
func NewMockClient(net *network.Network) *MockClient {
	var genesis chainhash.Hash
	frand.Read(genesis[:])

	return &MockClient{
		net:          net,
		transactions: make(map[chainhash.Hash]*transaction.Transaction),
		utxos:        make(map[string][]*utxo.Utxo),
		watched:      make(map[string]struct{}),
		blindingKeys: make(map[string]*btcec.PrivateKey),
		genesisHash:  genesis,
	}
}

// policyAsset returns the asset id of the network's policy asset.
func (m *MockClient) policyAsset() (utxo.AssetID, error) {
	return utxo.ParseAssetID(m.net.AssetID)
}

// SendToAddress creates a transaction paying amount of the policy asset to
// the address and records the resulting UTXO.
func (m *MockClient) SendToAddress(addr string,
	amount uint64) (chainhash.Hash, error) {

	script, err := address.ToOutputScript(addr)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("invalid address %v: %w",
			addr, err)
	}

	asset, err := m.policyAsset()
	if err != nil {
		return chainhash.Hash{}, err
	}

	value, err := elementsutil.ValueToBytes(amount)
	if err != nil {
		return chainhash.Hash{}, err
	}

	// The funding input spends a random outpoint so every funding
	// transaction gets a unique id.
	var prevHash chainhash.Hash
	frand.Read(prevHash[:])

	tx := transaction.NewTx(spend.TxVersion)
	tx.AddInput(transaction.NewTxInput(prevHash[:], 0))
	tx.AddOutput(transaction.NewTxOutput(asset.Bytes(), value, script))

	txid := tx.TxHash()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[txid] = tx
	m.utxos[addr] = append(m.utxos[addr], &utxo.Utxo{
		TxID:   txid,
		Vout:   0,
		Amount: amount,
		Script: script,
		Asset:  utxo.ExplicitAsset(asset),
	})

	return txid, nil
}

// GetTransaction returns a known transaction.
func (m *MockClient) GetTransaction(
	txid chainhash.Hash) (*transaction.Transaction, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[txid]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %v", ErrNotFound, txid)
	}

	return tx.Copy(), nil
}

// Broadcast stores the transaction and removes the UTXOs it spends.
func (m *MockClient) Broadcast(
	tx *transaction.Transaction) (chainhash.Hash, error) {

	txid := tx.TxHash()

	m.mu.Lock()
	defer m.mu.Unlock()

	spent := make(map[string]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		prevHash, err := chainhash.NewHash(in.Hash)
		if err != nil {
			return chainhash.Hash{}, fmt.Errorf("invalid input: %w",
				err)
		}
		spent[fmt.Sprintf("%v:%d", prevHash, in.Index)] = struct{}{}
	}

	for addr, utxos := range m.utxos {
		unspent := utxos[:0]
		for _, u := range utxos {
			if _, ok := spent[u.String()]; !ok {
				unspent = append(unspent, u)
			}
		}
		m.utxos[addr] = unspent
	}

	m.transactions[txid] = tx.Copy()

	return txid, nil
}

// GenerateBlocks bumps the block count and returns random block hashes.
func (m *MockClient) GenerateBlocks(count uint32) ([]chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hashes := make([]chainhash.Hash, count)
	for i := range hashes {
		frand.Read(hashes[i][:])
	}
	m.blockCount += uint64(count)

	return hashes, nil
}

// BlockCount returns the number of blocks generated so far.
func (m *MockClient) BlockCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.blockCount
}

// GetUtxos returns the UTXOs recorded for the address.
func (m *MockClient) GetUtxos(addr string) ([]*utxo.Utxo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*utxo.Utxo{}, m.utxos[addr]...), nil
}

// GetNewAddress returns a P2WPKH address of a random key.
func (m *MockClient) GetNewAddress() (string, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return "", err
	}

	return payment.FromPublicKey(key.PubKey(), m.net, nil).
		WitnessPubKeyHash()
}

// ImportAddress marks the address as watched.
func (m *MockClient) ImportAddress(addr string) error {
	if _, err := address.ToOutputScript(addr); err != nil {
		return fmt.Errorf("invalid address %v: %w", addr, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.watched[addr] = struct{}{}

	return nil
}

// IsWatched returns true if the address was imported.
func (m *MockClient) IsWatched(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.watched[addr]
	return ok
}

// ImportBlindingKey records the blinding key of the address.
func (m *MockClient) ImportBlindingKey(addr string,
	key *btcec.PrivateKey) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blindingKeys[addr] = key

	return nil
}

// BlindingKey returns the imported blinding key of the address.
func (m *MockClient) BlindingKey(addr string) (*btcec.PrivateKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.blindingKeys[addr]
	return key, ok
}

// BlindRawTransaction replaces the value and asset of every output carrying a
// nonce with commitments under random blinders. The commitments don't
// balance, the result is only good for exercising the confidential flow.
func (m *MockClient) BlindRawTransaction(tx *transaction.Transaction,
	params *spend.BlindingParams) (*transaction.Transaction, error) {

	if params.Len() != len(tx.Inputs) {
		return nil, fmt.Errorf("got blinding params for %d inputs, "+
			"transaction has %d", params.Len(), len(tx.Inputs))
	}

	blinded := tx.Copy()
	for i, out := range blinded.Outputs {
		if !out.IsConfidential() {
			continue
		}

		amount, err := elementsutil.ValueFromBytes(out.Value)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		asset, err := utxo.AssetFromBytes(out.Asset)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		assetID, ok := asset.ExplicitID()
		if !ok {
			return nil, fmt.Errorf("output %d is already blinded", i)
		}

		var amountBlinder, assetBlinder [utxo.BlinderSize]byte
		frand.Read(amountBlinder[:])
		frand.Read(assetBlinder[:])

		valueCommitment := pedersen.NewCommitment(
			pedersen.ValueOpening(amount, amountBlinder),
		).ValueCommitment()
		assetCommitment := pedersen.NewCommitment(
			pedersen.AssetOpening(assetID, assetBlinder),
		).AssetCommitment()

		blindedOut := transaction.NewTxOutput(
			assetCommitment[:], valueCommitment[:], out.Script,
		)
		blindedOut.Nonce = out.Nonce
		blinded.Outputs[i] = blindedOut
	}

	return blinded, nil
}

// AddTransaction records the transaction.
func (m *MockClient) AddTransaction(tx *transaction.Transaction) chainhash.Hash {
	txid := tx.TxHash()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[txid] = tx.Copy()

	return txid
}

// AddUtxo records a UTXO for the address.
func (m *MockClient) AddUtxo(addr string, u *utxo.Utxo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.utxos[addr] = append(m.utxos[addr], u)
}

// SetGenesisHash overrides the genesis hash.
func (m *MockClient) SetGenesisHash(hash chainhash.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.genesisHash = hash
}

// GenesisHash returns the genesis hash.
func (m *MockClient) GenesisHash() (chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.genesisHash, nil
}

var _ Client = (*MockClient)(nil)
