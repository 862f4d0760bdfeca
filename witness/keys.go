package witness

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// ErrZeroKey is returned for the secret key 0, which isn't a valid scalar.
var ErrZeroKey = errors.New("secret key must not be zero")

// KeyPairFromU32 derives a private key from a small integer secret, which is
// placed big-endian in the last four bytes of the 32 byte scalar. Such keys
// are only useful for tests and examples.
func KeyPairFromU32(secret uint32) (*btcec.PrivateKey, error) {
	if secret == 0 {
		return nil, ErrZeroKey
	}

	var scalar [32]byte
	binary.BigEndian.PutUint32(scalar[28:], secret)

	privKey, _ := btcec.PrivKeyFromBytes(scalar[:])
	return privKey, nil
}

// SignSchnorr signs the 32 byte message with the key derived from secret.
func SignSchnorr(secret uint32, msg [32]byte) ([64]byte, error) {
	var sig [64]byte

	privKey, err := KeyPairFromU32(secret)
	if err != nil {
		return sig, err
	}

	signature, err := schnorr.Sign(privKey, msg[:])
	if err != nil {
		return sig, fmt.Errorf("unable to sign: %w", err)
	}
	copy(sig[:], signature.Serialize())

	return sig, nil
}

// XOnlyPubKey returns the x-only public key of the key derived from secret.
func XOnlyPubKey(secret uint32) ([32]byte, error) {
	var key [32]byte

	privKey, err := KeyPairFromU32(secret)
	if err != nil {
		return key, err
	}
	copy(key[:], schnorr.SerializePubKey(privKey.PubKey()))

	return key, nil
}

// ParseXOnlyPubKey parses a 32 byte x-only public key.
func ParseXOnlyPubKey(b []byte) (*btcec.PublicKey, error) {
	return schnorr.ParsePubKey(b)
}
