package utxo

import (
	"encoding/hex"
	"fmt"

	"github.com/vulpemventures/go-elements/elementsutil"
)

const (
	// AssetIDSize is the size of an asset identifier in bytes.
	AssetIDSize = 32

	// CommitmentSize is the size of a serialized Pedersen commitment.
	CommitmentSize = 33

	// BlinderSize is the size of a blinding factor.
	BlinderSize = 32
)

// AssetID identifies an issued asset. The bytes are kept in display order,
// which is the order used by the hex strings of the node's RPC interface.
type AssetID [AssetIDSize]byte

// ParseAssetID decodes a hex asset id as returned by the node.
func ParseAssetID(s string) (AssetID, error) {
	var id AssetID

	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid asset id hex: %w", err)
	}
	if len(b) != AssetIDSize {
		return id, fmt.Errorf("asset id must be %d bytes, got %d",
			AssetIDSize, len(b))
	}
	copy(id[:], b)

	return id, nil
}

// String returns the hex encoding of the asset id.
func (a AssetID) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns the 33 byte explicit consensus encoding of the asset id.
func (a AssetID) Bytes() []byte {
	// The hex is always 64 characters long, so this can't fail.
	b, _ := elementsutil.AssetHashToBytes(a.String())
	return b
}

// AssetKind is the variant tag of an Asset.
type AssetKind uint8

const (
	// AssetNull is an unset asset.
	AssetNull AssetKind = iota

	// AssetExplicit is an asset whose id is visible on-chain.
	AssetExplicit

	// AssetConfidential is an asset hidden behind a generator commitment.
	AssetConfidential
)

// String returns the name of the asset variant.
func (k AssetKind) String() string {
	switch k {
	case AssetNull:
		return "null"
	case AssetExplicit:
		return "explicit"
	case AssetConfidential:
		return "confidential"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Asset is the asset of an output. Only the field that belongs to Kind is
// meaningful.
type Asset struct {
	Kind       AssetKind
	ID         AssetID
	Commitment [CommitmentSize]byte
}

// ExplicitAsset returns the explicit variant for the given asset id.
func ExplicitAsset(id AssetID) Asset {
	return Asset{Kind: AssetExplicit, ID: id}
}

// ConfidentialAsset returns the committed variant for the given generator
// commitment.
func ConfidentialAsset(commitment [CommitmentSize]byte) Asset {
	return Asset{Kind: AssetConfidential, Commitment: commitment}
}

// ExplicitID returns the asset id if the asset is explicit.
func (a Asset) ExplicitID() (AssetID, bool) {
	if a.Kind != AssetExplicit {
		return AssetID{}, false
	}

	return a.ID, true
}

// Bytes returns the consensus encoding of the asset.
func (a Asset) Bytes() []byte {
	switch a.Kind {
	case AssetExplicit:
		return a.ID.Bytes()

	case AssetConfidential:
		b := make([]byte, CommitmentSize)
		copy(b, a.Commitment[:])
		return b

	default:
		return []byte{0x00}
	}
}

// AssetFromBytes decodes the consensus encoding of an output asset.
func AssetFromBytes(b []byte) (Asset, error) {
	switch {
	case len(b) == 1 && b[0] == 0x00:
		return Asset{Kind: AssetNull}, nil

	case len(b) == CommitmentSize && b[0] == 0x01:
		id, err := ParseAssetID(elementsutil.AssetHashFromBytes(b))
		if err != nil {
			return Asset{}, err
		}
		return ExplicitAsset(id), nil

	case len(b) == CommitmentSize && (b[0] == 0x0a || b[0] == 0x0b):
		var commitment [CommitmentSize]byte
		copy(commitment[:], b)
		return ConfidentialAsset(commitment), nil

	default:
		return Asset{}, fmt.Errorf("invalid asset encoding: %x", b)
	}
}
