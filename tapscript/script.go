package tapscript

import (
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// SimplicityLeafVersion is the tapscript leaf version that marks a
	// leaf script as a Simplicity commitment root instead of a regular
	// tapscript.
	SimplicityLeafVersion txscript.TapscriptLeafVersion = 0xbe

	// numsKeyHex is the x-only encoding of the "nothing up my sleeve"
	// point H from BIP-0341. Nobody knows its discrete log, so an output
	// that uses it as the internal key can only be spent through the
	// script path.
	numsKeyHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9" +
		"ace803ac0"
)

var (
	// NUMSBytes is the x-only serialization of NUMSKey.
	NUMSBytes, _ = hex.DecodeString(numsKeyHex)

	// NUMSKey is the unspendable internal key used for all program
	// outputs. It is parsed once when the package is loaded and never
	// written afterwards.
	NUMSKey = mustParseXOnly(NUMSBytes)

	// ErrControlBlockNotFound is returned when a control block is requested
	// for a leaf that is not part of the program's tapscript tree.
	ErrControlBlockNotFound = errors.New("control block not found")
)

// mustParseXOnly parses an x-only public key and panics on failure. It is
// only meant for compile time constants.
func mustParseXOnly(b []byte) *btcec.PublicKey {
	key, err := schnorr.ParsePubKey(b)
	if err != nil {
		panic(err)
	}

	return key
}

// PayToTaprootScript creates a pk script for a pay-to-taproot output key.
func PayToTaprootScript(taprootKey *btcec.PublicKey) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(schnorr.SerializePubKey(taprootKey)).
		Script()
}
