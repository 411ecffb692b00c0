package registry

import (
	"github.com/blockberries/ledgerberry/types"
)

// Structural validation error strings. These are part of the external
// contract: callers and audit logs match on them.
const (
	ErrStrHashMismatch     = "hash mismatch"
	ErrStrPrevHashMismatch = "previous hash mismatch"
	ErrStrIndexGap         = "index not sequential"
	ErrStrNoEvidence       = "no evidence"
	ErrStrBadTimestamp     = "invalid timestamp"
)

// ValidationResult reports the outcome of structural block validation.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateBlock performs structural checks on a block. prev may be nil
// when no parent is available (e.g. validating an isolated export).
//
// The checks are purely structural: hash integrity, chain linkage,
// non-empty evidence, parseable timestamp. The function never mutates
// state and collects every violation instead of stopping at the first.
func ValidateBlock(block *types.Block, prev *types.Block) ValidationResult {
	var errs []string

	if block.Hash != block.ComputeHash() {
		errs = append(errs, ErrStrHashMismatch)
	}

	if prev != nil {
		if block.PreviousHash != prev.Hash {
			errs = append(errs, ErrStrPrevHashMismatch)
		}
		if block.Index != prev.Index+1 {
			errs = append(errs, ErrStrIndexGap)
		}
	}

	if len(block.Evidence) == 0 {
		errs = append(errs, ErrStrNoEvidence)
	}

	if _, err := block.ParseTimestamp(); err != nil {
		errs = append(errs, ErrStrBadTimestamp)
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
