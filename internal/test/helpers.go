package test

import (
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/utxo"
	"github.com/stretchr/testify/require"
)

func RandPrivKey(t *testing.T) *btcec.PrivateKey {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return privKey
}

func RandPubKey(t *testing.T) *btcec.PublicKey {
	return RandPrivKey(t).PubKey()
}

func RandBytes(num int) []byte {
	randBytes := make([]byte, num)
	_, _ = rand.Read(randBytes)
	return randBytes
}

// RandHash returns a random 32-byte hash.
func RandHash() chainhash.Hash {
	var hash chainhash.Hash
	copy(hash[:], RandBytes(chainhash.HashSize))
	return hash
}

// RandAssetID returns a random asset id.
func RandAssetID() utxo.AssetID {
	var id utxo.AssetID
	copy(id[:], RandBytes(utxo.AssetIDSize))
	return id
}

// RandUtxo returns an explicit UTXO with a random outpoint paying the given
// amount of a random asset to the given script.
func RandUtxo(script []byte, amount uint64) *utxo.Utxo {
	return &utxo.Utxo{
		TxID:   RandHash(),
		Vout:   rand.Uint32() % 8,
		Amount: amount,
		Script: script,
		Asset:  utxo.ExplicitAsset(RandAssetID()),
	}
}

// RandCommitment returns a random 33 byte commitment with the given prefix.
func RandCommitment(prefix byte) [utxo.CommitmentSize]byte {
	var c [utxo.CommitmentSize]byte
	c[0] = prefix
	copy(c[1:], RandBytes(utxo.CommitmentSize-1))
	return c
}

// RandConfidentialUtxo returns a UTXO with random blinding secrets and
// commitments.
func RandConfidentialUtxo(script []byte, amount uint64) *utxo.Utxo {
	u := RandUtxo(script, amount)

	var secrets utxo.Secrets
	copy(secrets.AmountBlinder[:], RandBytes(utxo.BlinderSize))
	copy(secrets.AssetBlinder[:], RandBytes(utxo.BlinderSize))
	secrets.AmountCommitment = RandCommitment(0x08)
	secrets.AssetCommitment = RandCommitment(0x0a)

	// Make sure the blinder is never all zero, which would turn the UTXO
	// back into an explicit one.
	secrets.AmountBlinder[0] |= 0x01

	u.Secrets = &secrets
	return u
}
