package audit

import (
	"errors"
	"fmt"
)

var (
	ErrContractNotFound      = errors.New("identity contract not found")
	ErrContractParse         = errors.New("identity contract is not valid JSON")
	ErrContractInvalid       = errors.New("identity contract has no usable pillars or descriptive fields")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrNotRunning            = errors.New("audit is not running")
)

// GenerationError records which role's generation call failed.
type GenerationError struct {
	Role string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Role, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is reports every GenerationError as ErrGenerationUnavailable, including timeouts
// and errors from generators that do not wrap the sentinel themselves.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationUnavailable
}
