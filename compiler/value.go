package compiler

import (
	"encoding/binary"
	"fmt"
)

// Type is the name of a program value type, e.g. "u32" or "Pubkey".
type Type string

const (
	// TypeBool is the boolean type.
	TypeBool Type = "bool"

	// TypeU8 is an unsigned 8-bit integer.
	TypeU8 Type = "u8"

	// TypeU16 is an unsigned 16-bit integer.
	TypeU16 Type = "u16"

	// TypeU32 is an unsigned 32-bit integer.
	TypeU32 Type = "u32"

	// TypeU64 is an unsigned 64-bit integer.
	TypeU64 Type = "u64"

	// TypeU256 is an unsigned 256-bit integer, which is also the type of
	// x-only public keys.
	TypeU256 Type = "u256"

	// TypePubkey is the alias used for x-only public keys.
	TypePubkey Type = "Pubkey"

	// TypeSignature is the alias used for 64-byte schnorr signatures.
	TypeSignature Type = "Signature"
)

// ByteArrayType returns the type of a fixed size byte array.
func ByteArrayType(n int) Type {
	return Type(fmt.Sprintf("[u8; %d]", n))
}

// Value is a typed program value. The data is the big-endian serialization
// of the value.
type Value struct {
	Type Type
	Data []byte
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{Type: TypeBool, Data: []byte{1}}
	}

	return Value{Type: TypeBool, Data: []byte{0}}
}

// U8 returns an 8-bit integer value.
func U8(v uint8) Value {
	return Value{Type: TypeU8, Data: []byte{v}}
}

// U16 returns a 16-bit integer value.
func U16(v uint16) Value {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)

	return Value{Type: TypeU16, Data: b[:]}
}

// U32 returns a 32-bit integer value.
func U32(v uint32) Value {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)

	return Value{Type: TypeU32, Data: b[:]}
}

// U64 returns a 64-bit integer value.
func U64(v uint64) Value {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)

	return Value{Type: TypeU64, Data: b[:]}
}

// U256 returns a 256-bit integer value from its big-endian bytes.
func U256(v [32]byte) Value {
	return Value{Type: TypeU256, Data: v[:]}
}

// ByteArray returns a fixed size byte array value.
func ByteArray(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)

	return Value{Type: ByteArrayType(len(b)), Data: data}
}

// String returns a human readable representation of the value.
func (v Value) String() string {
	return fmt.Sprintf("%s(0x%x)", v.Type, v.Data)
}

// Parameters is the typed parameter schema of a template, keyed by
// parameter name.
type Parameters map[string]Type

// Arguments maps parameter names to the concrete values bound at
// instantiation time.
type Arguments map[string]Value

// WitnessValues maps witness names to the values supplied at spend time.
type WitnessValues map[string]Value
