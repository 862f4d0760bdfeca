package pedersen

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/musk-sdk/musk/tapscript"
)

const (
	// CommitmentSize is the size of a serialized commitment.
	CommitmentSize = 33

	// ValuePrefix is the base prefix byte of a serialized value
	// commitment. The parity of the point's y coordinate is added to it.
	ValuePrefix byte = 0x08

	// AssetPrefix is the base prefix byte of a serialized asset generator
	// commitment.
	AssetPrefix byte = 0x0a
)

var (
	// DefaultGenerator is the auxiliary generator H used to blind
	// commitments. It is the same nothing-up-my-sleeve point that is used
	// as the unspendable taproot internal key.
	DefaultGenerator = *tapscript.NUMSKey

	// one is the value 1 as a scalar value.
	one = new(btcec.ModNScalar).SetInt(1)
)

// Opening is the opening to a Pedersen commitment: the committed message and
// the blinding factor. Without a mask the commitment is still binding but no
// longer hiding.
type Opening struct {
	// Msg is the message that was committed to.
	Msg [sha256.Size]byte

	// Mask is the blinding factor, `r` in m*G + r*H.
	Mask fn.Option[[sha256.Size]byte]

	// Generator is set if a custom auxiliary generator was used.
	Generator fn.Option[btcec.PublicKey]
}

// ValueOpening returns the opening of a value commitment to the given amount.
func ValueOpening(amount uint64, blinder [sha256.Size]byte) Opening {
	var msg [sha256.Size]byte
	binary.BigEndian.PutUint64(msg[sha256.Size-8:], amount)

	return Opening{
		Msg:  msg,
		Mask: fn.Some(blinder),
	}
}

// AssetOpening returns the opening of an asset commitment to the given asset
// id.
func AssetOpening(assetID [sha256.Size]byte, blinder [sha256.Size]byte) Opening {
	return Opening{
		Msg:  assetID,
		Mask: fn.Some(blinder),
	}
}

// Commitment is a Pedersen commitment m*G + r*H.
type Commitment struct {
	point btcec.PublicKey
}

type commitOpts struct {
	generator fn.Option[btcec.PublicKey]
}

func defaultCommitOpts() *commitOpts {
	return &commitOpts{}
}

// commitOpt is a functional option that can be used to modify the default set
// of options.
type commitOpt func(*commitOpts)

// WithGenerator sets a custom auxiliary generator.
func WithGenerator(h btcec.PublicKey) commitOpt {
	return func(o *commitOpts) {
		o.generator = fn.Some(h)
	}
}

// commit computes m*G + r*H. Without a mask r is 1.
func commit(msg [sha256.Size]byte, mask fn.Option[[sha256.Size]byte],
	h btcec.PublicKey) btcec.PublicKey {

	var hJ, msgPointJ, blindingPointJ, commitJ btcec.JacobianPoint

	h.AsJacobian(&hJ)

	msgPoint, _ := btcec.PrivKeyFromBytes(msg[:])
	msgPoint.PubKey().AsJacobian(&msgPointJ)

	blindingVal := fn.MapOption(
		func(r [sha256.Size]byte) *btcec.ModNScalar {
			rVal := new(btcec.ModNScalar)
			rVal.SetByteSlice(r[:])

			return rVal
		},
	)(mask).UnwrapOr(one)
	btcec.ScalarMultNonConst(blindingVal, &hJ, &blindingPointJ)

	btcec.AddNonConst(&msgPointJ, &blindingPointJ, &commitJ)
	commitJ.ToAffine()

	return *btcec.NewPublicKey(&commitJ.X, &commitJ.Y)
}

// NewCommitment creates a new commitment from the given opening.
func NewCommitment(op Opening, opts ...commitOpt) Commitment {
	opt := defaultCommitOpts()
	for _, o := range opts {
		o(opt)
	}

	h := opt.generator.UnwrapOr(DefaultGenerator)

	return Commitment{
		point: commit(op.Msg, op.Mask, h),
	}
}

// Verify returns true if the commitment opens to the given opening.
func (c Commitment) Verify(op Opening) bool {
	commitPoint := commit(
		op.Msg, op.Mask, op.Generator.UnwrapOr(DefaultGenerator),
	)

	return c.point.IsEqual(&commitPoint)
}

// Point returns the underlying point of the commitment.
func (c Commitment) Point() btcec.PublicKey {
	return c.point
}

// Serialize returns the compressed point with its prefix byte replaced by
// base plus the parity of the y coordinate.
func (c Commitment) Serialize(base byte) [CommitmentSize]byte {
	var b [CommitmentSize]byte
	copy(b[:], c.point.SerializeCompressed())
	b[0] = base | (b[0] & 0x01)

	return b
}

// ValueCommitment returns the serialization used for confidential values.
func (c Commitment) ValueCommitment() [CommitmentSize]byte {
	return c.Serialize(ValuePrefix)
}

// AssetCommitment returns the serialization used for confidential assets.
func (c Commitment) AssetCommitment() [CommitmentSize]byte {
	return c.Serialize(AssetPrefix)
}
