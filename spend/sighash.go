package spend

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/musk-sdk/musk/compiler"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/taproot"
	"github.com/vulpemventures/go-elements/transaction"
)

// SighashEnv computes the signature hash a program spending one input of a
// transaction commits to.
type SighashEnv interface {
	// SighashAll returns the digest for the given input. The prevOuts
	// hold the on-chain view of every input's previous output, in input
	// order.
	SighashAll(tx *transaction.Transaction, prevOuts []*utxo.PrevOut,
		inputIndex int, cmr compiler.CMR, controlBlock []byte,
		annex []byte, genesisHash chainhash.Hash) ([32]byte, error)
}

// ElementsEnv computes the Elements taproot script path signature hash with
// the default sighash type. The leaf hash is derived from the commitment root
// and the leaf version encoded in the control block.
type ElementsEnv struct{}

// SighashAll returns the SIGHASH_DEFAULT digest of the given input.
func (e *ElementsEnv) SighashAll(tx *transaction.Transaction,
	prevOuts []*utxo.PrevOut, inputIndex int, cmr compiler.CMR,
	controlBlock []byte, annex []byte,
	genesisHash chainhash.Hash) ([32]byte, error) {

	var digest [32]byte

	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return digest, fmt.Errorf("input index %d out of range",
			inputIndex)
	}
	if len(prevOuts) != len(tx.Inputs) {
		return digest, fmt.Errorf("got %d prevouts for %d inputs",
			len(prevOuts), len(tx.Inputs))
	}
	if len(controlBlock) == 0 {
		return digest, fmt.Errorf("empty control block")
	}

	version := txscript.TapscriptLeafVersion(
		controlBlock[0] & txscript.TaprootLeafMask,
	)
	leaf := taproot.NewTapElementsLeaf(version, cmr[:])
	leafHash := leaf.TapHash()

	scripts := make([][]byte, len(prevOuts))
	assets := make([][]byte, len(prevOuts))
	values := make([][]byte, len(prevOuts))
	for i, prevOut := range prevOuts {
		scripts[i] = prevOut.Script
		assets[i] = prevOut.Asset
		values[i] = prevOut.Value
	}

	hash := tx.HashForWitnessV1(
		inputIndex, scripts, assets, values, txscript.SigHashDefault,
		&genesisHash, &leafHash, annex,
	)
	copy(digest[:], hash[:])

	return digest, nil
}

var _ SighashEnv = (*ElementsEnv)(nil)

// SighashAll returns the signature hash of the given input of the unsigned
// transaction built from the builder's current state.
func (b *Builder) SighashAll(inputIndex int) ([32]byte, error) {
	if b.state == stateFinalized {
		return [32]byte{}, ErrBuilderFinalized
	}

	return b.sighash(b.BuildUnsigned(), inputIndex)
}

// SighashAllBlinded returns the signature hash of the given input of a
// transaction that was blinded externally. The outputs of a blinded
// transaction differ from the unsigned one, so the digest must be computed
// over the blinded transaction.
func (b *Builder) SighashAllBlinded(tx *transaction.Transaction,
	inputIndex int) ([32]byte, error) {

	if b.state == stateFinalized {
		return [32]byte{}, ErrBuilderFinalized
	}

	return b.sighash(tx, inputIndex)
}

// sighash computes the digest of the given input of tx, committing to the
// on-chain view of all the builder's inputs.
func (b *Builder) sighash(tx *transaction.Transaction,
	inputIndex int) ([32]byte, error) {

	var digest [32]byte

	if inputIndex < 0 || inputIndex >= len(b.utxos) {
		return digest, fmt.Errorf("%w: input index %d out of range "+
			"(%d inputs)", ErrBuild, inputIndex, len(b.utxos))
	}
	if err := b.checkInputs(tx); err != nil {
		return digest, err
	}

	prevOuts, err := b.prevOuts()
	if err != nil {
		return digest, err
	}

	ctrlBlock, err := b.controlBlock()
	if err != nil {
		return digest, err
	}

	digest, err = b.env.SighashAll(
		tx, prevOuts, inputIndex, b.prog.CMR(), ctrlBlock, nil,
		b.genesisHash,
	)
	if err != nil {
		return digest, fmt.Errorf("%w: %w", ErrSighash, err)
	}

	log.Debugf("Computed sighash %x for input %d", digest, inputIndex)

	return digest, nil
}

// prevOuts returns the on-chain view of every input. Confidential inputs
// with recorded commitments contribute the commitments.
func (b *Builder) prevOuts() ([]*utxo.PrevOut, error) {
	prevOuts := make([]*utxo.PrevOut, 0, len(b.utxos))
	for _, u := range b.utxos {
		prevOut, err := u.PrevOut()
		if err != nil {
			return nil, fmt.Errorf("%w: input %v: %w", ErrBuild, u,
				err)
		}
		prevOuts = append(prevOuts, prevOut)
	}

	return prevOuts, nil
}
