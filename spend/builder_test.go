package spend

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/compiler"
	compilermock "github.com/musk-sdk/musk/internal/mock/compiler"
	"github.com/musk-sdk/musk/internal/test"
	"github.com/musk-sdk/musk/program"
	"github.com/musk-sdk/musk/utxo"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	trueSource = `fn main() {
    assert!(true);
}`

	otherSource = `fn main() {
    let a: u32 = 1;
    assert!(jet::eq_32(a, 1));
}`

	p2pkSource = `fn main() {
    let key: Pubkey = param::KEY;
    let sig: Signature = witness::SIG;
    jet::bip_0340_verify((key, jet::sig_all_hash()), sig);
}`
)

var (
	// regtestGenesis is the genesis block hash of the default Elements
	// regtest chain.
	regtestGenesis = chainhash.Hash{
		0x21, 0xca, 0xb1, 0xe5, 0xda, 0x47, 0x18, 0xea, 0x14, 0x0d,
		0x97, 0x16, 0x93, 0x17, 0x02, 0x42, 0x2f, 0x0e, 0x6a, 0xd9,
		0x15, 0xc8, 0xd9, 0xb5, 0x83, 0xca, 0xc2, 0x70, 0x6b, 0x2a,
		0x90, 0x00,
	}

	noWitness = compiler.WitnessValues{}
)

func newProgram(t *testing.T, source string,
	args compiler.Arguments) *program.InstantiatedProgram {

	t.Helper()

	prog, err := program.New(compilermock.NewMockCompiler(), source)
	require.NoError(t, err)

	inst, err := prog.Instantiate(args)
	require.NoError(t, err)

	return inst
}

func p2pkProgram(t *testing.T) *program.InstantiatedProgram {
	t.Helper()

	key := schnorr.SerializePubKey(test.RandPubKey(t))
	return newProgram(t, p2pkSource, compiler.Arguments{
		"KEY": {Type: compiler.TypePubkey, Data: key},
	})
}

func sigWitness() compiler.WitnessValues {
	return compiler.WitnessValues{
		"SIG": {Type: compiler.TypeSignature, Data: test.RandBytes(64)},
	}
}

func programUtxo(t *testing.T, prog *program.InstantiatedProgram,
	amount uint64) *utxo.Utxo {

	t.Helper()

	pkScript, err := prog.ScriptPubKey()
	require.NoError(t, err)

	return test.RandUtxo(pkScript, amount)
}

func assetOf(t *testing.T, u *utxo.Utxo) utxo.AssetID {
	t.Helper()

	id, ok := u.Asset.ExplicitID()
	require.True(t, ok)

	return id
}

func valueOf(t *testing.T, out *transaction.TxOutput) uint64 {
	t.Helper()

	value, err := elementsutil.ValueFromBytes(out.Value)
	require.NoError(t, err)

	return value
}

// requireWitnessStack checks that the input carries the four element program
// witness stack.
func requireWitnessStack(t *testing.T, prog *program.InstantiatedProgram,
	in *transaction.TxInput) {

	t.Helper()

	require.Len(t, in.Witness, 4)

	cmr := prog.CMR()
	require.Equal(t, cmr[:], in.Witness[2])

	script, version := prog.ScriptVersion()
	ctrlBlock, ok := prog.SpendInfo().ControlBlock(script, version)
	require.True(t, ok)
	require.Equal(t, ctrlBlock, in.Witness[3])
	require.NotEmpty(t, in.Witness[1])
}

// TestSimpleSpend tests the full flow from a program to a transaction
// spending a single explicit UTXO.
func TestSimpleSpend(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})

	cmr := prog.CMR()
	require.Len(t, cmr[:], compiler.CMRSize)

	addr, err := prog.Address(&network.Regtest)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "ert1p"))

	u := programUtxo(t, prog, 100_000_000)
	destination := test.RandBytes(22)

	tx, err := SimpleSpend(
		prog, u, destination, 99_999_000, 1_000, regtestGenesis,
		noWitness,
	)
	require.NoError(t, err)

	require.Equal(t, int32(TxVersion), tx.Version)
	require.Equal(t, uint32(0), tx.Locktime)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 2)

	txid, vout := u.OutPoint()
	require.Equal(t, txid[:], tx.Inputs[0].Hash)
	require.Equal(t, vout, tx.Inputs[0].Index)
	require.Equal(t, DefaultSequence, tx.Inputs[0].Sequence)
	requireWitnessStack(t, prog, tx.Inputs[0])

	require.Equal(t, destination, tx.Outputs[0].Script)
	require.Equal(t, uint64(99_999_000), valueOf(t, tx.Outputs[0]))
	require.Empty(t, tx.Outputs[1].Script)
	require.Equal(t, uint64(1_000), valueOf(t, tx.Outputs[1]))
	require.Equal(t, u.Asset.Bytes(), tx.Outputs[0].Asset)
	require.Equal(t, u.Asset.Bytes(), tx.Outputs[1].Asset)

	// The result survives a serialization round trip.
	txHex, err := tx.ToHex()
	require.NoError(t, err)
	decoded, err := transaction.NewTxFromHex(txHex)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), decoded.TxHash())
}

func TestSimpleSpendInvalidUtxo(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})

	u := programUtxo(t, prog, 100_000_000)
	u.Asset = utxo.ConfidentialAsset(test.RandCommitment(0x0a))

	_, err := SimpleSpend(
		prog, u, test.RandBytes(22), 99_999_000, 1_000,
		regtestGenesis, noWitness,
	)
	require.ErrorIs(t, err, ErrInvalidUtxo)

	u.Asset = utxo.Asset{}
	_, err = SimpleSpend(
		prog, u, test.RandBytes(22), 99_999_000, 1_000,
		regtestGenesis, noWitness,
	)
	require.ErrorIs(t, err, ErrInvalidUtxo)
}

func TestNewBuilderNoInputs(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})

	_, err := NewBuilder(prog, nil)
	require.ErrorIs(t, err, ErrNoInputs)

	_, err = NewBuilder(prog, []*utxo.Utxo{})
	require.ErrorIs(t, err, ErrNoInputs)
}

// TestFinalizeMulti makes sure every input of a multi input spend gets its
// own independently satisfied witness stack.
func TestFinalizeMulti(t *testing.T) {
	prog := p2pkProgram(t)
	u1 := programUtxo(t, prog, 50_000)
	u2 := programUtxo(t, prog, 70_000)

	b, err := NewBuilder(
		prog, []*utxo.Utxo{u1, u2}, WithGenesisHash(regtestGenesis),
	)
	require.NoError(t, err)

	asset := assetOf(t, u1)
	require.NoError(t, b.AddOutputSimple(test.RandBytes(22), 119_000, asset))
	require.NoError(t, b.AddFee(1_000, asset))

	tx, err := b.FinalizeMulti([]compiler.WitnessValues{
		sigWitness(), sigWitness(),
	})
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 2)
	require.Len(t, tx.Outputs, 2)
	for _, in := range tx.Inputs {
		requireWitnessStack(t, prog, in)
	}

	require.NotEqual(t, tx.Inputs[0].Witness[0], tx.Inputs[1].Witness[0])
	require.Equal(t, tx.Inputs[0].Witness[1], tx.Inputs[1].Witness[1])
}

func TestFinalizeMultiCountMismatch(t *testing.T) {
	prog := p2pkProgram(t)
	u1 := programUtxo(t, prog, 50_000)
	u2 := programUtxo(t, prog, 70_000)

	testCases := []struct {
		name      string
		witnesses []compiler.WitnessValues
	}{{
		name:      "too few",
		witnesses: []compiler.WitnessValues{sigWitness()},
	}, {
		name: "too many",
		witnesses: []compiler.WitnessValues{
			sigWitness(), sigWitness(), sigWitness(),
		},
	}, {
		name:      "none",
		witnesses: nil,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBuilder(prog, []*utxo.Utxo{u1, u2})
			require.NoError(t, err)

			tx, err := b.FinalizeMulti(tc.witnesses)
			require.ErrorIs(t, err, ErrBuild)
			require.Nil(t, tx)
		})
	}
}

func TestFinalizeUnsatisfied(t *testing.T) {
	prog := p2pkProgram(t)

	b, err := NewBuilder(prog, []*utxo.Utxo{programUtxo(t, prog, 1_000)})
	require.NoError(t, err)

	_, err = b.Finalize(noWitness)
	require.ErrorIs(t, err, program.ErrSatisfaction)
}

// TestBuilderConsumed makes sure a builder can't be used anymore once a
// finalize call consumed it, even if that call failed.
func TestBuilderConsumed(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	u := programUtxo(t, prog, 10_000)
	asset := assetOf(t, u)

	b, err := NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)

	_, err = b.FinalizeMulti(nil)
	require.ErrorIs(t, err, ErrBuild)

	require.ErrorIs(
		t, b.AddOutputSimple(nil, 1, asset), ErrBuilderFinalized,
	)
	require.ErrorIs(t, b.AddFee(1, asset), ErrBuilderFinalized)
	require.ErrorIs(
		t, b.AddConfidentialOutput(nil, 1, asset, test.RandPubKey(t)),
		ErrBuilderFinalized,
	)
	require.ErrorIs(
		t, b.AddOutput(&transaction.TxOutput{}), ErrBuilderFinalized,
	)

	_, err = b.Finalize(noWitness)
	require.ErrorIs(t, err, ErrBuilderFinalized)
	_, err = b.FinalizeWithSatisfied(nil)
	require.ErrorIs(t, err, ErrBuilderFinalized)
	_, err = b.FinalizeBlinded(b.BuildUnsigned(), nil)
	require.ErrorIs(t, err, ErrBuilderFinalized)
	_, err = b.SighashAll(0)
	require.ErrorIs(t, err, ErrBuilderFinalized)
	_, err = b.SighashAllBlinded(b.BuildUnsigned(), 0)
	require.ErrorIs(t, err, ErrBuilderFinalized)

	// A successful finalize consumes the builder as well.
	b, err = NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)
	require.NoError(t, b.AddFee(10_000, asset))

	_, err = b.Finalize(noWitness)
	require.NoError(t, err)
	_, err = b.Finalize(noWitness)
	require.ErrorIs(t, err, ErrBuilderFinalized)
}

func TestBuildUnsigned(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	u1 := programUtxo(t, prog, 10_000)
	u2 := programUtxo(t, prog, 20_000)

	b, err := NewBuilder(
		prog, []*utxo.Utxo{u1, u2}, WithLockTime(500),
		WithSequence(0xfffffffe),
	)
	require.NoError(t, err)
	require.NoError(t, b.AddFee(30_000, assetOf(t, u1)))

	tx := b.BuildUnsigned()
	require.Equal(t, int32(TxVersion), tx.Version)
	require.Equal(t, uint32(500), tx.Locktime)
	require.Len(t, tx.Inputs, 2)
	require.Len(t, tx.Outputs, 1)

	for i, u := range []*utxo.Utxo{u1, u2} {
		require.Equal(t, u.TxID[:], tx.Inputs[i].Hash)
		require.Equal(t, u.Vout, tx.Inputs[i].Index)
		require.Equal(t, uint32(0xfffffffe), tx.Inputs[i].Sequence)
		require.Empty(t, tx.Inputs[i].Witness)
	}

	require.Equal(t, []*utxo.Utxo{u1, u2}, b.Inputs())
	require.Len(t, b.Outputs(), 1)
	require.Same(t, prog, b.Program())
}

func TestNeedsBlinding(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	u := programUtxo(t, prog, 10_000)
	asset := assetOf(t, u)

	b, err := NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)
	require.False(t, b.NeedsBlinding())
	require.False(t, b.HasConfidentialInput())

	require.NoError(t, b.AddOutputSimple(test.RandBytes(22), 9_000, asset))
	require.NoError(t, b.AddFee(1_000, asset))
	require.False(t, b.NeedsBlinding())

	blindingKey := test.RandPubKey(t)
	require.NoError(t, b.AddConfidentialOutput(
		test.RandBytes(22), 500, asset, blindingKey,
	))
	require.True(t, b.NeedsBlinding())
	require.Equal(
		t, blindingKey.SerializeCompressed(), b.Outputs()[2].Nonce,
	)

	err = b.AddConfidentialOutput(test.RandBytes(22), 500, asset, nil)
	require.ErrorIs(t, err, ErrBuild)
	require.Len(t, b.Outputs(), 3)

	confidential := test.RandConfidentialUtxo(u.Script, 10_000)
	b, err = NewBuilder(prog, []*utxo.Utxo{u, confidential})
	require.NoError(t, err)
	require.True(t, b.HasConfidentialInput())
}

func TestSighashDeterministic(t *testing.T) {
	prog := p2pkProgram(t)
	u1 := programUtxo(t, prog, 10_000)
	u2 := programUtxo(t, prog, 20_000)
	asset := assetOf(t, u1)

	b, err := NewBuilder(
		prog, []*utxo.Utxo{u1, u2}, WithGenesisHash(regtestGenesis),
	)
	require.NoError(t, err)
	require.NoError(t, b.AddOutputSimple(test.RandBytes(22), 29_000, asset))
	require.NoError(t, b.AddFee(1_000, asset))

	hash1, err := b.SighashAll(0)
	require.NoError(t, err)
	hash2, err := b.SighashAll(0)
	require.NoError(t, err)
	require.Equal(t, hash1, hash2)
	require.NotEqual(t, [32]byte{}, hash1)

	other, err := b.SighashAll(1)
	require.NoError(t, err)
	require.NotEqual(t, hash1, other)

	_, err = b.SighashAll(2)
	require.ErrorIs(t, err, ErrBuild)
	_, err = b.SighashAll(-1)
	require.ErrorIs(t, err, ErrBuild)

	// A different genesis hash yields a different digest.
	b2, err := NewBuilder(prog, []*utxo.Utxo{u1, u2})
	require.NoError(t, err)
	for _, out := range b.Outputs() {
		require.NoError(t, b2.AddOutput(out))
	}
	hash3, err := b2.SighashAll(0)
	require.NoError(t, err)
	require.NotEqual(t, hash1, hash3)

	// Changing the outputs changes the digest.
	require.NoError(t, b.AddFee(1, asset))
	hash4, err := b.SighashAll(0)
	require.NoError(t, err)
	require.NotEqual(t, hash1, hash4)
}

// recordingEnv is a SighashEnv that records its arguments.
type recordingEnv struct {
	prevOuts     []*utxo.PrevOut
	inputIndex   int
	cmr          compiler.CMR
	controlBlock []byte
	annex        []byte
	genesisHash  chainhash.Hash
	err          error
}

func (r *recordingEnv) SighashAll(_ *transaction.Transaction,
	prevOuts []*utxo.PrevOut, inputIndex int, cmr compiler.CMR,
	controlBlock []byte, annex []byte,
	genesisHash chainhash.Hash) ([32]byte, error) {

	r.prevOuts = prevOuts
	r.inputIndex = inputIndex
	r.cmr = cmr
	r.controlBlock = controlBlock
	r.annex = annex
	r.genesisHash = genesisHash

	return [32]byte{1}, r.err
}

// TestSighashPrevOuts makes sure confidential inputs contribute their
// on-chain commitments to the digest instead of the unblinded values.
func TestSighashPrevOuts(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	explicit := programUtxo(t, prog, 10_000)
	confidential := test.RandConfidentialUtxo(explicit.Script, 20_000)

	env := &recordingEnv{}
	b, err := NewBuilder(
		prog, []*utxo.Utxo{explicit, confidential},
		WithGenesisHash(regtestGenesis), WithSighashEnv(env),
	)
	require.NoError(t, err)

	digest, err := b.SighashAll(1)
	require.NoError(t, err)
	require.Equal(t, [32]byte{1}, digest)

	require.Len(t, env.prevOuts, 2)
	require.Equal(t, 1, env.inputIndex)
	require.Equal(t, prog.CMR(), env.cmr)
	require.Nil(t, env.annex)
	require.Equal(t, regtestGenesis, env.genesisHash)

	script, version := prog.ScriptVersion()
	ctrlBlock, _ := prog.SpendInfo().ControlBlock(script, version)
	require.Equal(t, ctrlBlock, env.controlBlock)

	value, err := elementsutil.ValueToBytes(10_000)
	require.NoError(t, err)
	require.Equal(t, value, env.prevOuts[0].Value)
	require.Equal(t, explicit.Asset.Bytes(), env.prevOuts[0].Asset)

	require.Equal(
		t, confidential.Secrets.AmountCommitment[:],
		env.prevOuts[1].Value,
	)
	require.Equal(
		t, confidential.Secrets.AssetCommitment[:],
		env.prevOuts[1].Asset,
	)

	env.err = errors.New("boom")
	_, err = b.SighashAll(0)
	require.ErrorIs(t, err, ErrSighash)
}

func TestBlindingParams(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	script, err := prog.ScriptPubKey()
	require.NoError(t, err)

	zero := strings.Repeat("0", 64)

	confidential := test.RandConfidentialUtxo(script, 20_000)
	confidentialID, _ := confidential.Asset.ExplicitID()

	explicit := test.RandUtxo(script, 5_000)
	explicitID, _ := explicit.Asset.ExplicitID()

	committed := test.RandUtxo(script, 7_000)
	committed.Asset = utxo.ConfidentialAsset(test.RandCommitment(0x0b))

	testCases := []struct {
		name          string
		utxo          *utxo.Utxo
		amountBlinder string
		amount        uint64
		assetID       string
		assetBlinder  string
	}{{
		name: "confidential",
		utxo: confidential,
		amountBlinder: hex.EncodeToString(
			confidential.Secrets.AmountBlinder[:],
		),
		amount:  20_000,
		assetID: confidentialID.String(),
		assetBlinder: hex.EncodeToString(
			confidential.Secrets.AssetBlinder[:],
		),
	}, {
		name:          "explicit",
		utxo:          explicit,
		amountBlinder: zero,
		amount:        5_000,
		assetID:       explicitID.String(),
		assetBlinder:  zero,
	}, {
		name:          "non explicit asset",
		utxo:          committed,
		amountBlinder: zero,
		amount:        7_000,
		assetID:       zero,
		assetBlinder:  zero,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBuilder(prog, []*utxo.Utxo{tc.utxo})
			require.NoError(t, err)

			require.Equal(t, &BlindingParams{
				AmountBlinders: []string{tc.amountBlinder},
				Amounts:        []uint64{tc.amount},
				AssetIDs:       []string{tc.assetID},
				AssetBlinders:  []string{tc.assetBlinder},
			}, b.BlindingParams())
		})
	}

	// The parameters of a multi input spend stay aligned with the
	// inputs.
	b, err := NewBuilder(
		prog, []*utxo.Utxo{confidential, explicit, committed},
	)
	require.NoError(t, err)

	params := b.BlindingParams()
	require.Equal(t, 3, params.Len())
	require.Len(t, params.AmountBlinders, 3)
	require.Len(t, params.AssetIDs, 3)
	require.Len(t, params.AssetBlinders, 3)
	require.Equal(t, []uint64{20_000, 5_000, 7_000}, params.Amounts)
}

// TestConfidentialFlow runs the two phase flow: build, blind externally,
// compute the digests on the blinded transaction and attach the witnesses.
func TestConfidentialFlow(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	script, err := prog.ScriptPubKey()
	require.NoError(t, err)

	u := test.RandConfidentialUtxo(script, 100_000)
	asset := assetOf(t, u)

	b, err := NewBuilder(
		prog, []*utxo.Utxo{u}, WithGenesisHash(regtestGenesis),
	)
	require.NoError(t, err)
	require.NoError(t, b.AddConfidentialOutput(
		test.RandBytes(22), 99_000, asset, test.RandPubKey(t),
	))
	require.NoError(t, b.AddFee(1_000, asset))
	require.True(t, b.NeedsBlinding())
	require.True(t, b.HasConfidentialInput())

	unsignedHash, err := b.SighashAll(0)
	require.NoError(t, err)

	// Stand in for the external blinder by replacing the first output's
	// value and asset with commitments.
	blinded := b.BuildUnsigned()
	valueCommitment := test.RandCommitment(0x08)
	assetCommitment := test.RandCommitment(0x0a)
	blinded.Outputs[0].Value = valueCommitment[:]
	blinded.Outputs[0].Asset = assetCommitment[:]

	blindedHash, err := b.SighashAllBlinded(blinded, 0)
	require.NoError(t, err)
	require.NotEqual(t, unsignedHash, blindedHash)

	again, err := b.SighashAllBlinded(blinded, 0)
	require.NoError(t, err)
	require.Equal(t, blindedHash, again)

	_, err = b.SighashAllBlinded(transaction.NewTx(TxVersion), 0)
	require.ErrorIs(t, err, ErrBuild)

	sat, err := prog.Satisfy(noWitness)
	require.NoError(t, err)

	tx, err := b.FinalizeBlinded(blinded, []*program.SatisfiedProgram{sat})
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 1)
	requireWitnessStack(t, prog, tx.Inputs[0])
	require.Equal(t, valueCommitment[:], tx.Outputs[0].Value)
	require.Equal(t, assetCommitment[:], tx.Outputs[0].Asset)
	require.True(t, bytes.Equal(
		blinded.Outputs[1].Script, tx.Outputs[1].Script,
	))

	// The blinded transaction handed in isn't modified.
	require.Empty(t, blinded.Inputs[0].Witness)
}

// TestBlindedInputsMustMatch makes sure a blinded transaction is only
// accepted if it spends the builder's UTXOs in the builder's order.
func TestBlindedInputsMustMatch(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	u1 := programUtxo(t, prog, 10_000)
	u2 := programUtxo(t, prog, 20_000)

	testCases := []struct {
		name   string
		mutate func(tx *transaction.Transaction)
		valid  bool
	}{{
		name:   "same inputs",
		mutate: func(*transaction.Transaction) {},
		valid:  true,
	}, {
		name: "swapped inputs",
		mutate: func(tx *transaction.Transaction) {
			tx.Inputs[0], tx.Inputs[1] = tx.Inputs[1], tx.Inputs[0]
		},
	}, {
		name: "foreign outpoint",
		mutate: func(tx *transaction.Transaction) {
			hash := test.RandHash()
			tx.Inputs[1].Hash = hash[:]
		},
	}, {
		name: "different vout",
		mutate: func(tx *transaction.Transaction) {
			tx.Inputs[0].Index++
		},
	}, {
		name: "missing input",
		mutate: func(tx *transaction.Transaction) {
			tx.Inputs = tx.Inputs[:1]
		},
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBuilder(
				prog, []*utxo.Utxo{u1, u2},
				WithGenesisHash(regtestGenesis),
			)
			require.NoError(t, err)
			require.NoError(t, b.AddFee(30_000, assetOf(t, u1)))

			blinded := b.BuildUnsigned()
			tc.mutate(blinded)

			_, err = b.SighashAllBlinded(blinded, 0)
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrBuild)
			}

			sat, err := prog.Satisfy(noWitness)
			require.NoError(t, err)

			tx, err := b.FinalizeBlinded(
				blinded, []*program.SatisfiedProgram{sat, sat},
			)
			if !tc.valid {
				require.ErrorIs(t, err, ErrBuild)
				return
			}
			require.NoError(t, err)

			for i, u := range []*utxo.Utxo{u1, u2} {
				require.Equal(t, u.TxID[:], tx.Inputs[i].Hash)
				require.Equal(t, u.Vout, tx.Inputs[i].Index)
				requireWitnessStack(t, prog, tx.Inputs[i])
			}
		})
	}
}

func TestFinalizeWithSatisfied(t *testing.T) {
	prog := newProgram(t, trueSource, compiler.Arguments{})
	u := programUtxo(t, prog, 10_000)
	asset := assetOf(t, u)

	sat, err := prog.Satisfy(noWitness)
	require.NoError(t, err)

	b, err := NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)
	require.NoError(t, b.AddFee(10_000, asset))

	tx, err := b.FinalizeWithSatisfied([]*program.SatisfiedProgram{sat})
	require.NoError(t, err)
	requireWitnessStack(t, prog, tx.Inputs[0])

	// A program satisfied for a different output has no control block
	// for this builder's leaf.
	other := newProgram(t, otherSource, compiler.Arguments{})
	otherSat, err := other.Satisfy(noWitness)
	require.NoError(t, err)

	b, err = NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)

	_, err = b.FinalizeWithSatisfied(
		[]*program.SatisfiedProgram{otherSat},
	)
	require.ErrorIs(t, err, ErrBuild)

	b, err = NewBuilder(prog, []*utxo.Utxo{u})
	require.NoError(t, err)

	_, err = b.FinalizeWithSatisfied(nil)
	require.ErrorIs(t, err, ErrBuild)
}
