package witness

import (
	"fmt"

	"github.com/musk-sdk/musk/compiler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Builder collects the named witness values of a spend. The first error is
// kept and returned by Build, so calls can be chained.
type Builder struct {
	values compiler.WitnessValues
	err    error
}

// NewBuilder creates an empty witness builder.
func NewBuilder() *Builder {
	return &Builder{
		values: make(compiler.WitnessValues),
	}
}

// With sets the witness with the given name. A later value replaces an
// earlier one.
func (b *Builder) With(name string, value compiler.Value) *Builder {
	b.values[name] = value
	return b
}

// WithSignature sets the named witness to the signature of msg, which is
// usually the signature hash of the spending input.
func (b *Builder) WithSignature(name string, secret uint32,
	msg [32]byte) *Builder {

	sig, err := SignSchnorr(secret, msg)
	if err != nil {
		b.setErr(fmt.Errorf("witness %s: %w", name, err))
		return b
	}

	return b.With(name, compiler.Value{
		Type: compiler.TypeSignature,
		Data: sig[:],
	})
}

// WithPubkey sets the named witness to the x-only public key of the key
// derived from secret.
func (b *Builder) WithPubkey(name string, secret uint32) *Builder {
	key, err := XOnlyPubKey(secret)
	if err != nil {
		b.setErr(fmt.Errorf("witness %s: %w", name, err))
		return b
	}

	return b.With(name, compiler.Value{
		Type: compiler.TypePubkey,
		Data: key[:],
	})
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Names returns the names of all witnesses set so far, sorted.
func (b *Builder) Names() []string {
	names := maps.Keys(b.values)
	slices.Sort(names)

	return names
}

// Build returns a copy of the witness values.
func (b *Builder) Build() (compiler.WitnessValues, error) {
	if b.err != nil {
		return nil, b.err
	}

	values := make(compiler.WitnessValues, len(b.values))
	for name, value := range b.values {
		values[name] = value
	}

	return values, nil
}
