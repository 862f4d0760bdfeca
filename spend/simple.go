package spend

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/compiler"
	"github.com/musk-sdk/musk/program"
	"github.com/musk-sdk/musk/utxo"
	"github.com/vulpemventures/go-elements/transaction"
)

// SimpleSpend spends a single explicit UTXO to the destination script, paying
// the fee in the same asset. Elements transactions must balance, so amount
// plus fee has to equal the UTXO's amount. This isn't checked here.
func SimpleSpend(prog *program.InstantiatedProgram, u *utxo.Utxo,
	destination []byte, amount, fee uint64, genesisHash chainhash.Hash,
	witness compiler.WitnessValues) (*transaction.Transaction, error) {

	asset, ok := u.Asset.ExplicitID()
	if !ok {
		return nil, fmt.Errorf("%w: %v has a %v asset", ErrInvalidUtxo,
			u, u.Asset.Kind)
	}

	b, err := NewBuilder(
		prog, []*utxo.Utxo{u}, WithGenesisHash(genesisHash),
	)
	if err != nil {
		return nil, err
	}

	if err := b.AddOutputSimple(destination, amount, asset); err != nil {
		return nil, err
	}
	if err := b.AddFee(fee, asset); err != nil {
		return nil, err
	}

	return b.Finalize(witness)
}
