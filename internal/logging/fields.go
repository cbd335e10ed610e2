package logging

// Field names for structured logging.
const (
	FieldError    = "error"
	FieldPath     = "path"
	FieldOutput   = "output"
	FieldLanguage = "language"
	FieldConfig   = "config"

	// Parser tracing.
	FieldPos        = "pos"
	FieldState      = "state"
	FieldSymbol     = "symbol"
	FieldProduction = "production"
	FieldCost       = "cost"
	FieldVersions   = "versions"
	FieldSize       = "size"
	FieldEOF        = "eof"

	// Statistics.
	FieldNodes    = "nodes"
	FieldReused   = "reused"
	FieldCreated  = "created"
	FieldElapsed  = "elapsed"
	FieldStates   = "states"
	FieldConflict = "conflicts"
	FieldCases    = "cases"
	FieldFailed   = "failed"
)
