package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoName              = newSemanticError("a grammar needs a name")
	semErrNoProduction        = newSemanticError("a grammar needs at least one rule")
	semErrInvalidName         = newSemanticError("invalid name")
	semErrUndefinedSym        = newSemanticError("undefined symbol")
	semErrUnusedRule          = newSemanticError("unused rule")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrDuplicateTerminal   = newSemanticError("duplicate terminal")
	semErrDuplicateFragment   = newSemanticError("duplicate fragment")
	semErrDuplicateName       = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrDuplicateAssoc      = newSemanticError("associativity and precedence cannot be specified multiple times for a symbol")
	semErrUndefinedPrec       = newSemanticError("symbol must has precedence")
	semErrInvalidAssoc        = newSemanticError("invalid associativity")
	semErrInvalidPattern      = newSemanticError("invalid pattern")
	semErrEmptyPattern        = newSemanticError("a pattern must not be empty")
	semErrInvalidAlternative  = newSemanticError("invalid alternative")
	semErrExtraNotTerminal    = newSemanticError("an extra must be a terminal")
	semErrExtraInRule         = newSemanticError("an extra cannot appear in a rule")
	semErrConflictNotRule     = newSemanticError("a conflict group can contain only rules")
)
