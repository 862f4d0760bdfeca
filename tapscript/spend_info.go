package tapscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/musk-sdk/musk/compiler"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/taproot"
)

// SpendInfo is the taproot spend information of a program output. The tree
// has exactly one leaf whose script is the program's commitment root, so the
// merkle root is the hash of that leaf.
type SpendInfo struct {
	leaf         taproot.TapElementsLeaf
	tree         *taproot.IndexedElementsTapScriptTree
	merkleRoot   chainhash.Hash
	outputKey    *btcec.PublicKey
	controlBlock []byte
}

// NewSpendInfo builds the single leaf tapscript tree committing to the given
// program commitment root, using NUMSKey as the internal key.
func NewSpendInfo(cmr compiler.CMR) (*SpendInfo, error) {
	leaf := taproot.NewTapElementsLeaf(SimplicityLeafVersion, cmr[:])
	tree := taproot.AssembleTaprootScriptTree(leaf)
	merkleRoot := tree.RootNode.TapHash()

	proofIdx, ok := tree.LeafProofIndex[leaf.TapHash()]
	if !ok {
		return nil, fmt.Errorf("%w: program leaf missing from tree",
			ErrControlBlockNotFound)
	}

	ctrlBlock := tree.LeafMerkleProofs[proofIdx].ToControlBlock(NUMSKey)
	ctrlBlockBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("unable to serialize control "+
			"block: %w", err)
	}

	outputKey := taproot.ComputeTaprootOutputKey(NUMSKey, merkleRoot[:])

	return &SpendInfo{
		leaf:         leaf,
		tree:         tree,
		merkleRoot:   merkleRoot,
		outputKey:    outputKey,
		controlBlock: ctrlBlockBytes,
	}, nil
}

// InternalKey returns the internal key of the output, which is always the
// unspendable NUMSKey.
func (s *SpendInfo) InternalKey() *btcec.PublicKey {
	return NUMSKey
}

// MerkleRoot returns the root hash of the tapscript tree.
func (s *SpendInfo) MerkleRoot() chainhash.Hash {
	return s.merkleRoot
}

// OutputKey returns the tweaked taproot output key.
func (s *SpendInfo) OutputKey() *btcec.PublicKey {
	return s.outputKey
}

// LeafScript returns the script and leaf version of the program leaf.
func (s *SpendInfo) LeafScript() ([]byte, txscript.TapscriptLeafVersion) {
	script := make([]byte, len(s.leaf.Script))
	copy(script, s.leaf.Script)

	return script, s.leaf.LeafVersion
}

// ScriptPubKey returns the segwit v1 output script of the program.
func (s *SpendInfo) ScriptPubKey() ([]byte, error) {
	return PayToTaprootScript(s.outputKey)
}

// ControlBlock returns the serialized control block proving inclusion of the
// given leaf in the tree. False is returned if the leaf isn't part of the
// tree.
func (s *SpendInfo) ControlBlock(script []byte,
	version txscript.TapscriptLeafVersion) ([]byte, bool) {

	if version != s.leaf.LeafVersion || !bytes.Equal(script, s.leaf.Script) {
		return nil, false
	}

	ctrlBlock := make([]byte, len(s.controlBlock))
	copy(ctrlBlock, s.controlBlock)

	return ctrlBlock, true
}

// Address encodes the program output as an address for the given network. If
// a blinding key is given, the confidential (blech32) encoding is returned,
// otherwise the explicit (bech32m) one.
func (s *SpendInfo) Address(net *network.Network,
	blindingKey fn.Option[*btcec.PublicKey]) (string, error) {

	pay, err := payment.FromTaprootScriptTree(
		NUMSKey, s.tree, net, blindingKey.UnwrapOr(nil),
	)
	if err != nil {
		return "", fmt.Errorf("unable to derive taproot payment: %w",
			err)
	}

	if blindingKey.IsSome() {
		return pay.ConfidentialTaprootAddress()
	}

	return pay.TaprootAddress()
}
