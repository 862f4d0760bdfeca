package program

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/musk-sdk/musk/compiler"
	"github.com/musk-sdk/musk/tapscript"
	"github.com/vulpemventures/go-elements/network"
)

// Program is a parsed program template. It is never mutated after it was
// parsed, so it can be instantiated any number of times.
type Program struct {
	source   string
	template compiler.Template
}

// New parses the given source with the compiler.
func New(c compiler.Compiler, source string) (*Program, error) {
	template, err := c.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return &Program{
		source:   source,
		template: template,
	}, nil
}

// FromFile reads the program source from the given file and parses it.
func FromFile(c compiler.Compiler, path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read program: %w", err)
	}

	return New(c, string(source))
}

// Parameters returns the parameter schema of the program.
func (p *Program) Parameters() compiler.Parameters {
	return p.template.Parameters()
}

// Source returns the source the program was parsed from.
func (p *Program) Source() string {
	return p.source
}

// Instantiate binds the arguments to the program's parameters and derives
// the taproot output of the result.
func (p *Program) Instantiate(
	args compiler.Arguments) (*InstantiatedProgram, error) {

	artifact, err := p.template.Instantiate(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	return FromArtifact(artifact)
}

// InstantiatedProgram is a program with all parameters bound, together with
// the taproot spend info of the output that commits to it.
type InstantiatedProgram struct {
	artifact  compiler.Artifact
	cmr       compiler.CMR
	spendInfo *tapscript.SpendInfo
}

// FromArtifact creates an instantiated program from an already compiled
// artifact, for example one produced by an external toolchain.
func FromArtifact(artifact compiler.Artifact) (*InstantiatedProgram, error) {
	cmr := artifact.Commit()

	spendInfo, err := tapscript.NewSpendInfo(cmr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaproot, err)
	}

	log.Debugf("Instantiated program with cmr=%v", cmr)

	return &InstantiatedProgram{
		artifact:  artifact,
		cmr:       cmr,
		spendInfo: spendInfo,
	}, nil
}

// CMR returns the commitment root of the program.
func (p *InstantiatedProgram) CMR() compiler.CMR {
	return p.cmr
}

// SpendInfo returns the taproot spend info of the program's output.
func (p *InstantiatedProgram) SpendInfo() *tapscript.SpendInfo {
	return p.spendInfo
}

// ScriptVersion returns the leaf script, which is the commitment root, and
// the leaf version of the program.
func (p *InstantiatedProgram) ScriptVersion() ([]byte,
	txscript.TapscriptLeafVersion) {

	return p.spendInfo.LeafScript()
}

// Address returns the explicit address of the program on the given network.
func (p *InstantiatedProgram) Address(net *network.Network) (string, error) {
	return p.AddressWithBlinder(net, fn.None[*btcec.PublicKey]())
}

// ConfidentialAddress returns the confidential address of the program for
// the given blinding key.
func (p *InstantiatedProgram) ConfidentialAddress(net *network.Network,
	blindingKey *btcec.PublicKey) (string, error) {

	return p.AddressWithBlinder(net, fn.Some(blindingKey))
}

// AddressWithBlinder returns the confidential address if a blinding key is
// given and the explicit one otherwise.
func (p *InstantiatedProgram) AddressWithBlinder(net *network.Network,
	blindingKey fn.Option[*btcec.PublicKey]) (string, error) {

	addr, err := p.spendInfo.Address(net, blindingKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTaproot, err)
	}

	return addr, nil
}

// ScriptPubKey returns the output script paying to the program.
func (p *InstantiatedProgram) ScriptPubKey() ([]byte, error) {
	pkScript, err := p.spendInfo.ScriptPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaproot, err)
	}

	return pkScript, nil
}

// Satisfy runs the prover against the given witness values.
func (p *InstantiatedProgram) Satisfy(
	witness compiler.WitnessValues) (*SatisfiedProgram, error) {

	satisfied, err := p.artifact.Satisfy(witness)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSatisfaction, err)
	}

	return &SatisfiedProgram{
		satisfied: satisfied,
		cmr:       p.cmr,
		spendInfo: p.spendInfo,
	}, nil
}

// SatisfiedProgram is a program together with a satisfying witness. It is
// ready to be encoded into the witness stack of a spending input.
type SatisfiedProgram struct {
	satisfied compiler.SatisfiedArtifact
	cmr       compiler.CMR
	spendInfo *tapscript.SpendInfo
}

// NewSatisfiedProgram wraps a satisfied artifact of the given instantiated
// program.
func NewSatisfiedProgram(p *InstantiatedProgram,
	satisfied compiler.SatisfiedArtifact) *SatisfiedProgram {

	return &SatisfiedProgram{
		satisfied: satisfied,
		cmr:       p.cmr,
		spendInfo: p.spendInfo,
	}
}

// Encode returns the serialized program and witness bytes.
func (s *SatisfiedProgram) Encode() ([]byte, []byte) {
	return s.satisfied.Encode()
}

// CMR returns the commitment root of the satisfied program.
func (s *SatisfiedProgram) CMR() compiler.CMR {
	return s.cmr
}

// SpendInfo returns the taproot spend info of the program's output.
func (s *SatisfiedProgram) SpendInfo() *tapscript.SpendInfo {
	return s.spendInfo
}
