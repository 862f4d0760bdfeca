package compiler

import (
	"encoding/hex"
	"errors"
)

// CMRSize is the size of a program commitment root in bytes.
const CMRSize = 32

// CMR is the commitment Merkle root of a compiled program. It is the content
// hash that identifies the program's logic and is used as the tapscript leaf
// script of the program's taproot output.
type CMR [CMRSize]byte

// String returns the hex encoding of the commitment root.
func (c CMR) String() string {
	return hex.EncodeToString(c[:])
}

// ParseCMR decodes a hex encoded commitment root.
func ParseCMR(s string) (CMR, error) {
	var cmr CMR

	b, err := hex.DecodeString(s)
	if err != nil {
		return cmr, err
	}
	if len(b) != CMRSize {
		return cmr, errors.New("cmr must be 32 bytes")
	}
	copy(cmr[:], b)

	return cmr, nil
}

// Compiler parses program source text into a template. Parsing covers both
// syntactic and semantic validation of the source.
type Compiler interface {
	// Parse parses the given source into a program template.
	Parse(source string) (Template, error)
}

// Template is a parsed program with a named, typed parameter schema. A
// template is never mutated after it was created.
type Template interface {
	// Parameters returns the parameter schema of the template.
	Parameters() Parameters

	// Instantiate binds the given arguments to the template's parameters
	// and produces a committed artifact.
	Instantiate(args Arguments) (Artifact, error)
}

// Artifact is a compiled program with all parameters bound.
type Artifact interface {
	// Commit returns the commitment root of the program. The root is a
	// pure function of the template and the arguments it was instantiated
	// with.
	Commit() CMR

	// Satisfy runs the prover against the given witness values.
	Satisfy(witness WitnessValues) (SatisfiedArtifact, error)
}

// SatisfiedArtifact is a program together with a witness that satisfies it.
type SatisfiedArtifact interface {
	// Encode returns the serialized program and witness bytes as they
	// appear in a script-path witness stack.
	Encode() (program, witness []byte)
}
