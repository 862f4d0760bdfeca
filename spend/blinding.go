package spend

import (
	"encoding/hex"

	"github.com/musk-sdk/musk/utxo"
)

// zeroHex is the hex placeholder for a missing blinder or asset id.
var zeroHex = hex.EncodeToString(make([]byte, utxo.BlinderSize))

// BlindingParams are the per-input parameters an external blinder needs to
// balance the output commitments against the inputs. The four slices are
// parallel and hold one entry per input, in input order.
type BlindingParams struct {
	// AmountBlinders are the hex encoded amount blinding factors.
	AmountBlinders []string `json:"amount_blinders"`

	// Amounts are the unblinded input amounts.
	Amounts []uint64 `json:"amounts"`

	// AssetIDs are the hex encoded input asset ids.
	AssetIDs []string `json:"asset_ids"`

	// AssetBlinders are the hex encoded asset blinding factors.
	AssetBlinders []string `json:"asset_blinders"`
}

// BlindingParams returns the blinding parameters of the builder's inputs.
// Explicit inputs carry zero blinders. Inputs without an explicit asset id
// get a zero placeholder so the slices stay aligned, callers that need a
// strict check must inspect the inputs themselves.
func (b *Builder) BlindingParams() *BlindingParams {
	params := &BlindingParams{
		AmountBlinders: make([]string, 0, len(b.utxos)),
		Amounts:        make([]uint64, 0, len(b.utxos)),
		AssetIDs:       make([]string, 0, len(b.utxos)),
		AssetBlinders:  make([]string, 0, len(b.utxos)),
	}

	for _, u := range b.utxos {
		amountBlinder, assetBlinder := zeroHex, zeroHex
		if u.Secrets != nil {
			amountBlinder = hex.EncodeToString(
				u.Secrets.AmountBlinder[:],
			)
			assetBlinder = hex.EncodeToString(
				u.Secrets.AssetBlinder[:],
			)
		}

		assetID := zeroHex
		if id, ok := u.Asset.ExplicitID(); ok {
			assetID = id.String()
		}

		params.AmountBlinders = append(
			params.AmountBlinders, amountBlinder,
		)
		params.Amounts = append(params.Amounts, u.Amount)
		params.AssetIDs = append(params.AssetIDs, assetID)
		params.AssetBlinders = append(params.AssetBlinders, assetBlinder)
	}

	return params
}

// Len returns the number of inputs the parameters describe.
func (p *BlindingParams) Len() int {
	return len(p.Amounts)
}
