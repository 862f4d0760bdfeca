package client

import (
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/internal/test"
	"github.com/musk-sdk/musk/spend"
	"github.com/musk-sdk/musk/utxo"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/address"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/transaction"
)

func newAddress(t *testing.T, m *MockClient) string {
	t.Helper()

	addr, err := m.GetNewAddress()
	require.NoError(t, err)

	return addr
}

func TestMockSendToAddress(t *testing.T) {
	m := NewMockClient(&network.Regtest)
	addr := newAddress(t, m)
	require.True(t, strings.HasPrefix(addr, "ert1q"))

	txid, err := m.SendToAddress(addr, 100_000)
	require.NoError(t, err)

	tx, err := m.GetTransaction(txid)
	require.NoError(t, err)
	require.Equal(t, txid, tx.TxHash())
	require.Len(t, tx.Outputs, 1)

	utxos, err := m.GetUtxos(addr)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, txid, utxos[0].TxID)
	require.EqualValues(t, 100_000, utxos[0].Amount)
	require.False(t, utxos[0].IsConfidential())

	// The recorded UTXO matches the funding output.
	fromTx, err := utxo.FromTxOutput(tx, 0)
	require.NoError(t, err)
	require.Equal(t, fromTx, utxos[0])

	id, ok := utxos[0].Asset.ExplicitID()
	require.True(t, ok)
	require.Equal(t, network.Regtest.AssetID, id.String())

	// Unknown addresses have no UTXOs.
	utxos, err = m.GetUtxos(newAddress(t, m))
	require.NoError(t, err)
	require.Empty(t, utxos)

	_, err = m.SendToAddress("not an address", 1)
	require.Error(t, err)
}

func TestMockGetTransactionNotFound(t *testing.T) {
	m := NewMockClient(&network.Regtest)

	_, err := m.GetTransaction(chainhash.Hash{1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMockBroadcast(t *testing.T) {
	m := NewMockClient(&network.Regtest)
	addr := newAddress(t, m)

	txid, err := m.SendToAddress(addr, 5_000)
	require.NoError(t, err)
	_, err = m.SendToAddress(addr, 6_000)
	require.NoError(t, err)

	utxos, err := m.GetUtxos(addr)
	require.NoError(t, err)
	require.Len(t, utxos, 2)

	script, err := address.ToOutputScript(newAddress(t, m))
	require.NoError(t, err)
	value, err := elementsutil.ValueToBytes(4_000)
	require.NoError(t, err)

	tx := transaction.NewTx(spend.TxVersion)
	tx.AddInput(utxos[0].TxInput(spend.DefaultSequence))
	tx.AddOutput(transaction.NewTxOutput(
		utxos[0].Asset.Bytes(), value, script,
	))

	spendID, err := m.Broadcast(tx)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), spendID)

	stored, err := m.GetTransaction(spendID)
	require.NoError(t, err)
	require.Equal(t, spendID, stored.TxHash())

	// Only the spent UTXO is gone.
	left, err := m.GetUtxos(addr)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.NotEqual(t, txid, left[0].TxID)
}

func TestMockGenerateBlocks(t *testing.T) {
	m := NewMockClient(&network.Regtest)

	hashes, err := m.GenerateBlocks(3)
	require.NoError(t, err)
	require.Len(t, hashes, 3)
	require.NotEqual(t, hashes[0], hashes[1])

	_, err = m.GenerateBlocks(2)
	require.NoError(t, err)
	require.EqualValues(t, 5, m.BlockCount())
}

func TestMockGenesisHash(t *testing.T) {
	m := NewMockClient(&network.Regtest)

	hash := chainhash.Hash{0xab}
	m.SetGenesisHash(hash)

	got, err := m.GenesisHash()
	require.NoError(t, err)
	require.Equal(t, hash, got)
}

func TestMockWallet(t *testing.T) {
	m := NewMockClient(&network.Regtest)
	addr := newAddress(t, m)

	require.False(t, m.IsWatched(addr))
	require.NoError(t, m.ImportAddress(addr))
	require.True(t, m.IsWatched(addr))
	require.Error(t, m.ImportAddress("bogus"))

	key := test.RandPrivKey(t)
	require.NoError(t, m.ImportBlindingKey(addr, key))

	got, ok := m.BlindingKey(addr)
	require.True(t, ok)
	require.Equal(t, key, got)
}

func TestMockBlindRawTransaction(t *testing.T) {
	m := NewMockClient(&network.Regtest)

	asset, err := utxo.ParseAssetID(network.Regtest.AssetID)
	require.NoError(t, err)
	value, err := elementsutil.ValueToBytes(1_000)
	require.NoError(t, err)

	blindingKey := test.RandPrivKey(t)

	confidential := transaction.NewTxOutput(
		asset.Bytes(), value, []byte{0x51},
	)
	confidential.Nonce = blindingKey.PubKey().SerializeCompressed()
	explicit := transaction.NewTxOutput(asset.Bytes(), value, nil)

	tx := transaction.NewTx(spend.TxVersion)
	tx.AddInput(transaction.NewTxInput(make([]byte, 32), 0))
	tx.AddOutput(confidential)
	tx.AddOutput(explicit)

	params := &spend.BlindingParams{
		AmountBlinders: []string{strings.Repeat("00", 32)},
		Amounts:        []uint64{2_000},
		AssetIDs:       []string{asset.String()},
		AssetBlinders:  []string{strings.Repeat("00", 32)},
	}

	blinded, err := m.BlindRawTransaction(tx, params)
	require.NoError(t, err)

	out := blinded.Outputs[0]
	require.Len(t, out.Value, 33)
	require.Contains(t, []byte{0x08, 0x09}, out.Value[0])
	require.Len(t, out.Asset, 33)
	require.Contains(t, []byte{0x0a, 0x0b}, out.Asset[0])

	// Outputs without nonce and the input transaction stay untouched.
	require.Equal(t, value, blinded.Outputs[1].Value)
	require.Equal(t, value, tx.Outputs[0].Value)

	_, err = m.BlindRawTransaction(tx, &spend.BlindingParams{})
	require.Error(t, err)
}

func TestMockConcurrentUse(t *testing.T) {
	m := NewMockClient(&network.Regtest)
	addr := newAddress(t, m)

	const numSends = 20

	var wg sync.WaitGroup
	for i := 0; i < numSends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := m.SendToAddress(addr, 1_000)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	utxos, err := m.GetUtxos(addr)
	require.NoError(t, err)
	require.Len(t, utxos, numSends)
}
