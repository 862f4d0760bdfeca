package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/musk-sdk/musk/compiler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrAssertion is returned when a program with a failing assertion is
	// satisfied.
	ErrAssertion = errors.New("assertion failed")

	paramDecl = regexp.MustCompile(
		`let\s+\w+\s*:\s*([^=;]+?)\s*=\s*param::(\w+)`,
	)
	witnessDecl = regexp.MustCompile(
		`let\s+\w+\s*:\s*([^=;]+?)\s*=\s*witness::(\w+)`,
	)
	paramRef   = regexp.MustCompile(`param::(\w+)`)
	witnessRef = regexp.MustCompile(`witness::(\w+)`)

	cmrTag     = []byte("MockSimplicity/CMR")
	programTag = []byte("MockSimplicity/Program")
)

// MockCompiler is a deterministic stand-in for the program compiler. It
// doesn't understand the language, it only extracts the typed parameter and
// witness declarations from the source and hashes everything into the
// commitment root.
type MockCompiler struct{}

// NewMockCompiler creates a new mock compiler.
func NewMockCompiler() *MockCompiler {
	return &MockCompiler{}
}

// Parse checks that the source has a main function with balanced braces and
// collects its declarations.
func (m *MockCompiler) Parse(source string) (compiler.Template, error) {
	normalized := strings.Join(strings.Fields(source), " ")

	if !strings.Contains(normalized, "fn main()") {
		return nil, errors.New("missing main function")
	}
	if strings.Count(normalized, "{") != strings.Count(normalized, "}") {
		return nil, errors.New("unbalanced braces")
	}

	params, err := declarations(normalized, paramDecl, paramRef)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	witnesses, err := declarations(normalized, witnessDecl, witnessRef)
	if err != nil {
		return nil, fmt.Errorf("witnesses: %w", err)
	}

	return &MockTemplate{
		source:    normalized,
		params:    params,
		witnesses: witnesses,
	}, nil
}

// declarations returns the typed declarations matched by decl. Every name
// matched by ref must be declared exactly once.
func declarations(source string, decl,
	ref *regexp.Regexp) (map[string]compiler.Type, error) {

	types := make(map[string]compiler.Type)
	for _, match := range decl.FindAllStringSubmatch(source, -1) {
		name := match[2]
		if _, ok := types[name]; ok {
			return nil, fmt.Errorf("%s declared twice", name)
		}
		types[name] = compiler.Type(match[1])
	}

	for _, match := range ref.FindAllStringSubmatch(source, -1) {
		if _, ok := types[match[1]]; !ok {
			return nil, fmt.Errorf("%s has no type", match[1])
		}
	}

	return types, nil
}

// MockTemplate is a parsed mock program.
type MockTemplate struct {
	source    string
	params    map[string]compiler.Type
	witnesses map[string]compiler.Type
}

// Parameters returns a copy of the parameter schema.
func (t *MockTemplate) Parameters() compiler.Parameters {
	params := make(compiler.Parameters, len(t.params))
	for name, typ := range t.params {
		params[name] = typ
	}

	return params
}

// Instantiate checks the arguments against the schema and commits to the
// source and the sorted arguments.
func (t *MockTemplate) Instantiate(
	args compiler.Arguments) (compiler.Artifact, error) {

	if err := checkValues(t.params, args); err != nil {
		return nil, err
	}

	msgs := [][]byte{[]byte(t.source)}
	msgs = append(msgs, encodeValues(args)...)
	cmr := chainhash.TaggedHash(cmrTag, msgs...)

	return &MockArtifact{
		cmr:       compiler.CMR(*cmr),
		source:    t.source,
		witnesses: t.witnesses,
	}, nil
}

// checkValues makes sure exactly the declared names are given, each with the
// declared type.
func checkValues(schema map[string]compiler.Type,
	values map[string]compiler.Value) error {

	for name, typ := range schema {
		value, ok := values[name]
		if !ok {
			return fmt.Errorf("missing value for %s", name)
		}
		if value.Type != typ {
			return fmt.Errorf("%s must be of type %s, got %s", name,
				typ, value.Type)
		}
	}
	for name := range values {
		if _, ok := schema[name]; !ok {
			return fmt.Errorf("unknown name %s", name)
		}
	}

	return nil
}

// encodeValues serializes the values sorted by name.
func encodeValues(values map[string]compiler.Value) [][]byte {
	names := maps.Keys(values)
	slices.Sort(names)

	encoded := make([][]byte, 0, len(names))
	for _, name := range names {
		value := values[name]

		var b bytes.Buffer
		b.WriteString(name)
		b.WriteByte(0)
		b.WriteString(string(value.Type))
		b.WriteByte(0)
		b.Write(value.Data)

		encoded = append(encoded, b.Bytes())
	}

	return encoded
}

// MockArtifact is an instantiated mock program.
type MockArtifact struct {
	cmr       compiler.CMR
	source    string
	witnesses map[string]compiler.Type
}

// Commit returns the commitment root.
func (a *MockArtifact) Commit() compiler.CMR {
	return a.cmr
}

// Satisfy fails for programs asserting false and for witness values that
// don't match the declarations.
func (a *MockArtifact) Satisfy(
	witness compiler.WitnessValues) (compiler.SatisfiedArtifact, error) {

	if strings.Contains(a.source, "assert!(false)") {
		return nil, ErrAssertion
	}
	if err := checkValues(a.witnesses, witness); err != nil {
		return nil, err
	}

	program := chainhash.TaggedHash(programTag, a.cmr[:])

	return &MockSatisfied{
		program: append(a.cmr[:], program[:]...),
		witness: bytes.Join(encodeValues(witness), nil),
	}, nil
}

// MockSatisfied is a satisfied mock program.
type MockSatisfied struct {
	program []byte
	witness []byte
}

// Encode returns the program and witness bytes.
func (s *MockSatisfied) Encode() ([]byte, []byte) {
	return s.program, s.witness
}

var _ compiler.Compiler = (*MockCompiler)(nil)
var _ compiler.Template = (*MockTemplate)(nil)
var _ compiler.Artifact = (*MockArtifact)(nil)
var _ compiler.SatisfiedArtifact = (*MockSatisfied)(nil)
