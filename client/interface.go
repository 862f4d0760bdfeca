package client

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/spend"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/transaction"
)

var (
	// ErrNotFound is returned when the node doesn't know the requested
	// transaction.
	ErrNotFound = errors.New("not found")

	// ErrRPC is returned when a call to the node fails.
	ErrRPC = errors.New("rpc error")
)

// NodeClient is the set of node operations needed to fund and spend program
// outputs. All calls block until the node answered.
type NodeClient interface {
	// SendToAddress sends amount satoshis of the policy asset to the
	// address and returns the id of the funding transaction.
	SendToAddress(addr string, amount uint64) (chainhash.Hash, error)

	// GetTransaction fetches a transaction by id.
	GetTransaction(txid chainhash.Hash) (*transaction.Transaction, error)

	// Broadcast submits the transaction to the network.
	Broadcast(tx *transaction.Transaction) (chainhash.Hash, error)

	// GenerateBlocks mines the given number of blocks. Only available on
	// test networks.
	GenerateBlocks(count uint32) ([]chainhash.Hash, error)

	// GetUtxos lists the confirmed unspent outputs paying to the address.
	GetUtxos(addr string) ([]*utxo.Utxo, error)

	// GetNewAddress returns a fresh address of the node's wallet.
	GetNewAddress() (string, error)
}

// WalletClient is the set of wallet operations needed to watch and blind
// confidential program outputs.
type WalletClient interface {
	// ImportAddress adds the address to the wallet as watch-only.
	ImportAddress(addr string) error

	// ImportBlindingKey imports the private blinding key of a
	// confidential address so the wallet can unblind its outputs.
	ImportBlindingKey(addr string, key *btcec.PrivateKey) error

	// BlindRawTransaction blinds the outputs of tx that carry a blinding
	// nonce, balancing the commitments against the given inputs.
	BlindRawTransaction(tx *transaction.Transaction,
		params *spend.BlindingParams) (*transaction.Transaction, error)
}

// Client is a node client that also offers the wallet operations.
type Client interface {
	NodeClient
	WalletClient

	// GenesisHash returns the genesis block hash of the node's network.
	GenesisHash() (chainhash.Hash, error)
}
