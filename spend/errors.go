package spend

import "errors"

var (
	// ErrBuild is returned for malformed builder usage, such as a missing
	// control block, a witness count that doesn't match the number of
	// inputs or an input index out of range.
	ErrBuild = errors.New("build error")

	// ErrInvalidUtxo is returned when an operation requires an explicit
	// asset but the UTXO carries a different asset variant.
	ErrInvalidUtxo = errors.New("invalid utxo")

	// ErrFinalization is returned when the final transaction can't be
	// assembled.
	ErrFinalization = errors.New("finalization error")

	// ErrSighash is returned when the signature hash environment fails to
	// compute a digest.
	ErrSighash = errors.New("sighash error")

	// ErrNoInputs is returned when a builder is created without any UTXO
	// to spend.
	ErrNoInputs = errors.New("at least one input is required")

	// ErrBuilderFinalized is returned when a builder is used after it was
	// consumed by a finalize call.
	ErrBuilderFinalized = errors.New("builder already finalized")
)
