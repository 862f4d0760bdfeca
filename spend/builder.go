package spend

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/compiler"
	"github.com/musk-sdk/musk/program"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	// TxVersion is the version of all transactions built.
	TxVersion = 2

	// DefaultSequence is the sequence applied to every input unless
	// overridden.
	DefaultSequence uint32 = 0xffffffff
)

// builderState is the lifecycle state of a Builder.
type builderState uint8

const (
	// stateBuilding allows adding outputs and computing signature hashes.
	stateBuilding builderState = iota

	// stateFinalized is entered by the first finalize call. The builder
	// can't be used anymore afterwards.
	stateFinalized
)

// BuilderOption is a functional option that modifies a Builder on creation.
type BuilderOption func(*Builder)

// WithGenesisHash sets the genesis block hash of the network, which domain
// separates the signature hashes.
func WithGenesisHash(hash chainhash.Hash) BuilderOption {
	return func(b *Builder) {
		b.genesisHash = hash
	}
}

// WithLockTime sets the lock time of the transaction.
func WithLockTime(lockTime uint32) BuilderOption {
	return func(b *Builder) {
		b.lockTime = lockTime
	}
}

// WithSequence sets the sequence of all inputs.
func WithSequence(sequence uint32) BuilderOption {
	return func(b *Builder) {
		b.sequence = sequence
	}
}

// WithSighashEnv overrides the environment used to compute signature hashes.
func WithSighashEnv(env SighashEnv) BuilderOption {
	return func(b *Builder) {
		b.env = env
	}
}

// Builder assembles a transaction spending one or more UTXOs locked by the
// same program. The lock time and the sequence are shared by all inputs.
//
// A builder is consumed by the first finalize call, whether it succeeds or
// not. It is not safe for concurrent use.
type Builder struct {
	prog    *program.InstantiatedProgram
	utxos   []*utxo.Utxo
	outputs []*transaction.TxOutput

	lockTime    uint32
	sequence    uint32
	genesisHash chainhash.Hash
	env         SighashEnv

	state builderState
}

// NewBuilder creates a builder spending the given UTXOs with the program.
func NewBuilder(prog *program.InstantiatedProgram, utxos []*utxo.Utxo,
	opts ...BuilderOption) (*Builder, error) {

	if len(utxos) == 0 {
		return nil, ErrNoInputs
	}

	b := &Builder{
		prog:     prog,
		utxos:    append([]*utxo.Utxo(nil), utxos...),
		sequence: DefaultSequence,
		env:      &ElementsEnv{},
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// AddOutput appends the given output.
func (b *Builder) AddOutput(out *transaction.TxOutput) error {
	if b.state == stateFinalized {
		return ErrBuilderFinalized
	}

	b.outputs = append(b.outputs, out)

	return nil
}

// AddOutputSimple appends an explicit output paying amount of the asset to
// the script.
func (b *Builder) AddOutputSimple(script []byte, amount uint64,
	asset utxo.AssetID) error {

	out, err := explicitOutput(script, amount, asset)
	if err != nil {
		return err
	}

	return b.AddOutput(out)
}

// AddFee appends a fee output, which is an explicit output with an empty
// script.
func (b *Builder) AddFee(amount uint64, asset utxo.AssetID) error {
	return b.AddOutputSimple(nil, amount, asset)
}

// AddConfidentialOutput appends an output that must be blinded to the given
// blinding key before the transaction is signed.
func (b *Builder) AddConfidentialOutput(script []byte, amount uint64,
	asset utxo.AssetID, blindingKey *btcec.PublicKey) error {

	if blindingKey == nil {
		return fmt.Errorf("%w: missing blinding key", ErrBuild)
	}

	out, err := explicitOutput(script, amount, asset)
	if err != nil {
		return err
	}
	out.Nonce = blindingKey.SerializeCompressed()

	return b.AddOutput(out)
}

// explicitOutput creates an unblinded output.
func explicitOutput(script []byte, amount uint64,
	asset utxo.AssetID) (*transaction.TxOutput, error) {

	value, err := elementsutil.ValueToBytes(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount: %w", ErrBuild, err)
	}

	return transaction.NewTxOutput(asset.Bytes(), value, script), nil
}

// NeedsBlinding returns true if any output carries a blinding nonce.
func (b *Builder) NeedsBlinding() bool {
	for _, out := range b.outputs {
		if out.IsConfidential() {
			return true
		}
	}

	return false
}

// HasConfidentialInput returns true if any input is confidential.
func (b *Builder) HasConfidentialInput() bool {
	for _, u := range b.utxos {
		if u.IsConfidential() {
			return true
		}
	}

	return false
}

// Inputs returns the UTXOs spent by the builder, in input order.
func (b *Builder) Inputs() []*utxo.Utxo {
	return append([]*utxo.Utxo(nil), b.utxos...)
}

// Outputs returns the outputs added so far.
func (b *Builder) Outputs() []*transaction.TxOutput {
	return append([]*transaction.TxOutput(nil), b.outputs...)
}

// Program returns the program the inputs are locked by.
func (b *Builder) Program() *program.InstantiatedProgram {
	return b.prog
}

// BuildUnsigned returns the transaction with empty witnesses. For
// confidential spends, this is what is handed to the external blinder.
func (b *Builder) BuildUnsigned() *transaction.Transaction {
	tx := transaction.NewTx(TxVersion)
	tx.Locktime = b.lockTime

	for _, u := range b.utxos {
		tx.AddInput(u.TxInput(b.sequence))
	}
	for _, out := range b.outputs {
		tx.AddOutput(out)
	}

	return tx
}

// consume moves the builder into the finalized state.
func (b *Builder) consume() error {
	if b.state == stateFinalized {
		return ErrBuilderFinalized
	}
	b.state = stateFinalized

	return nil
}

// Finalize satisfies the program with the given witness values and returns
// the final transaction spending the single input.
func (b *Builder) Finalize(
	witness compiler.WitnessValues) (*transaction.Transaction, error) {

	return b.FinalizeMulti([]compiler.WitnessValues{witness})
}

// FinalizeMulti satisfies the program once per input with the witness values
// at the same index and returns the final transaction.
func (b *Builder) FinalizeMulti(
	witnesses []compiler.WitnessValues) (*transaction.Transaction, error) {

	if err := b.consume(); err != nil {
		return nil, err
	}

	if len(witnesses) != len(b.utxos) {
		return nil, fmt.Errorf("%w: got %d witnesses for %d inputs",
			ErrBuild, len(witnesses), len(b.utxos))
	}

	satisfied := make([]*program.SatisfiedProgram, 0, len(witnesses))
	for i, witness := range witnesses {
		sat, err := b.prog.Satisfy(witness)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		satisfied = append(satisfied, sat)
	}

	return b.attachWitnesses(b.BuildUnsigned(), satisfied)
}

// FinalizeWithSatisfied attaches the already satisfied programs to the
// unsigned transaction, one per input.
func (b *Builder) FinalizeWithSatisfied(
	satisfied []*program.SatisfiedProgram) (*transaction.Transaction,
	error) {

	if err := b.consume(); err != nil {
		return nil, err
	}

	return b.attachWitnesses(b.BuildUnsigned(), satisfied)
}

// FinalizeBlinded attaches the already satisfied programs to a transaction
// that was blinded externally. Only the input witnesses are set, the outputs
// are kept as they are.
func (b *Builder) FinalizeBlinded(tx *transaction.Transaction,
	satisfied []*program.SatisfiedProgram) (*transaction.Transaction,
	error) {

	if err := b.consume(); err != nil {
		return nil, err
	}

	if err := b.checkInputs(tx); err != nil {
		return nil, err
	}

	return b.attachWitnesses(tx.Copy(), satisfied)
}

// checkInputs makes sure tx spends exactly the builder's UTXOs, in the same
// order.
func (b *Builder) checkInputs(tx *transaction.Transaction) error {
	if len(tx.Inputs) != len(b.utxos) {
		return fmt.Errorf("%w: transaction has %d inputs, builder "+
			"has %d", ErrBuild, len(tx.Inputs), len(b.utxos))
	}

	for i, u := range b.utxos {
		txid, vout := u.OutPoint()

		in := tx.Inputs[i]
		if !bytes.Equal(in.Hash, txid[:]) || in.Index != vout {
			return fmt.Errorf("%w: input %d doesn't spend %v",
				ErrBuild, i, u)
		}
	}

	return nil
}

// attachWitnesses sets the witness stack [witness, program, cmr, control
// block] of every input of tx.
func (b *Builder) attachWitnesses(tx *transaction.Transaction,
	satisfied []*program.SatisfiedProgram) (*transaction.Transaction,
	error) {

	if len(satisfied) != len(tx.Inputs) {
		return nil, fmt.Errorf("%w: got %d satisfied programs for %d "+
			"inputs", ErrBuild, len(satisfied), len(tx.Inputs))
	}

	script, version := b.prog.ScriptVersion()
	for i, sat := range satisfied {
		if sat == nil {
			return nil, fmt.Errorf("%w: missing satisfied program "+
				"for input %d", ErrFinalization, i)
		}

		ctrlBlock, ok := sat.SpendInfo().ControlBlock(script, version)
		if !ok {
			return nil, fmt.Errorf("%w: control block not found "+
				"for input %d", ErrBuild, i)
		}

		programBytes, witnessBytes := sat.Encode()
		tx.Inputs[i].Witness = transaction.TxWitness{
			witnessBytes, programBytes, script, ctrlBlock,
		}
	}

	log.Debugf("Finalized transaction %v spending %d inputs",
		tx.TxHash(), len(tx.Inputs))
	log.Tracef("Final transaction: %v", limitSpewer.Sdump(tx))

	return tx, nil
}

// controlBlock returns the control block of the program leaf.
func (b *Builder) controlBlock() ([]byte, error) {
	script, version := b.prog.ScriptVersion()

	ctrlBlock, ok := b.prog.SpendInfo().ControlBlock(script, version)
	if !ok {
		return nil, fmt.Errorf("%w: control block not found", ErrBuild)
	}

	return ctrlBlock, nil
}
