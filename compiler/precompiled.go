package compiler

import (
	"errors"
)

// ErrNoWitness is returned when a precompiled artifact is asked to satisfy a
// program without any witness bytes to attach.
var ErrNoWitness = errors.New("precompiled artifact has no witness")

// Precompiled is an artifact that was compiled and satisfied by an external
// toolchain. It carries the commitment root, the serialized program and,
// once known, the serialized witness.
type Precompiled struct {
	// Root is the commitment root of the program.
	Root CMR

	// Program is the serialized program.
	Program []byte

	// Witness is the serialized witness. It may be empty while the
	// signing material (the sighash) is still being computed.
	Witness []byte
}

// Commit returns the commitment root of the precompiled program.
func (p *Precompiled) Commit() CMR {
	return p.Root
}

// Satisfy returns the precompiled program with its external witness. Named
// witness values can't be applied to an already serialized program, so they
// must be empty.
func (p *Precompiled) Satisfy(witness WitnessValues) (SatisfiedArtifact,
	error) {

	if len(witness) != 0 {
		return nil, errors.New("precompiled artifact does not accept " +
			"witness values")
	}
	if len(p.Witness) == 0 {
		return nil, ErrNoWitness
	}

	return p, nil
}

// Encode returns the serialized program and witness.
func (p *Precompiled) Encode() ([]byte, []byte) {
	return p.Program, p.Witness
}

var _ Artifact = (*Precompiled)(nil)
var _ SatisfiedArtifact = (*Precompiled)(nil)
