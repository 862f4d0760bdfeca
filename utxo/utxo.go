package utxo

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/transaction"
)

// Secrets holds the blinding data of a confidential output: the blinding
// factors that open the on-chain commitments, and the commitments themselves
// as they appear on-chain. The four values are always present together.
type Secrets struct {
	// AmountBlinder is the blinding factor of the value commitment.
	AmountBlinder [BlinderSize]byte

	// AssetBlinder is the blinding factor of the asset commitment.
	AssetBlinder [BlinderSize]byte

	// AmountCommitment is the on-chain value commitment.
	AmountCommitment [CommitmentSize]byte

	// AssetCommitment is the on-chain asset commitment.
	AssetCommitment [CommitmentSize]byte
}

// Utxo is a previous output that can be spent. Amount and Asset always hold
// the unblinded values known to the spender. For confidential outputs,
// Secrets carries the data needed to open and balance the commitments.
type Utxo struct {
	// TxID is the id of the transaction that created the output.
	TxID chainhash.Hash

	// Vout is the index of the output within the transaction.
	Vout uint32

	// Amount is the output value in satoshis.
	Amount uint64

	// Script is the output's script pubkey.
	Script []byte

	// Asset is the asset of the output.
	Asset Asset

	// Secrets is nil for explicit outputs.
	Secrets *Secrets
}

// IsConfidential returns true if the output carries a non-zero amount
// blinder. An all-zero blinder is treated as an explicit output.
func (u *Utxo) IsConfidential() bool {
	if u.Secrets == nil {
		return false
	}

	return u.Secrets.AmountBlinder != [BlinderSize]byte{}
}

// hasCommitments returns true if both on-chain commitments were recorded.
func (u *Utxo) hasCommitments() bool {
	if u.Secrets == nil {
		return false
	}

	var zero [CommitmentSize]byte
	return u.Secrets.AmountCommitment != zero &&
		u.Secrets.AssetCommitment != zero
}

// OutPoint returns the transaction id and output index of the UTXO.
func (u *Utxo) OutPoint() (chainhash.Hash, uint32) {
	return u.TxID, u.Vout
}

// String returns the outpoint of the UTXO in txid:vout form.
func (u *Utxo) String() string {
	return fmt.Sprintf("%v:%d", u.TxID, u.Vout)
}

// PrevOut is the on-chain view of a previous output as committed to by a
// signature hash.
type PrevOut struct {
	// Script is the script pubkey of the output.
	Script []byte

	// Asset is the 33 byte asset encoding, either explicit or a
	// generator commitment.
	Asset []byte

	// Value is the value encoding, either a 9 byte explicit value or a 33
	// byte Pedersen commitment.
	Value []byte
}

// PrevOut returns the output as it appears on-chain. Confidential outputs
// with recorded commitments return the commitments, not the unblinded
// values.
func (u *Utxo) PrevOut() (*PrevOut, error) {
	if u.IsConfidential() && u.hasCommitments() {
		return &PrevOut{
			Script: u.Script,
			Asset:  append([]byte(nil), u.Secrets.AssetCommitment[:]...),
			Value:  append([]byte(nil), u.Secrets.AmountCommitment[:]...),
		}, nil
	}

	value, err := elementsutil.ValueToBytes(u.Amount)
	if err != nil {
		return nil, fmt.Errorf("unable to encode value: %w", err)
	}

	return &PrevOut{
		Script: u.Script,
		Asset:  u.Asset.Bytes(),
		Value:  value,
	}, nil
}

// TxInput returns an unsigned transaction input spending the UTXO.
func (u *Utxo) TxInput(sequence uint32) *transaction.TxInput {
	hash := u.TxID
	in := transaction.NewTxInput(hash[:], u.Vout)
	in.Sequence = sequence

	return in
}

// FromTxOutput creates an explicit UTXO from the given output of a fetched
// transaction. Confidential outputs can't be opened without their blinding
// key, so an error is returned for them.
func FromTxOutput(tx *transaction.Transaction, vout uint32) (*Utxo, error) {
	if int(vout) >= len(tx.Outputs) {
		return nil, fmt.Errorf("output index %d out of range (%d "+
			"outputs)", vout, len(tx.Outputs))
	}

	out := tx.Outputs[vout]
	if len(out.Value) != 9 || out.Value[0] != 0x01 {
		return nil, fmt.Errorf("output %d has a confidential value",
			vout)
	}

	amount, err := elementsutil.ValueFromBytes(out.Value)
	if err != nil {
		return nil, fmt.Errorf("unable to decode value: %w", err)
	}

	asset, err := AssetFromBytes(out.Asset)
	if err != nil {
		return nil, err
	}

	script := make([]byte, len(out.Script))
	copy(script, out.Script)

	return &Utxo{
		TxID:   tx.TxHash(),
		Vout:   vout,
		Amount: amount,
		Script: script,
		Asset:  asset,
	}, nil
}
