package pricing

import "errors"

// Configuration validation errors. ComputePrice returns them wrapped with the
// offending option ids; match with errors.Is.
var (
	ErrUnknownModel        = errors.New("unknown model")
	ErrUnknownOption       = errors.New("unknown option")
	ErrOptionNotApplicable = errors.New("option not applicable to model")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrQuantityExceeded    = errors.New("quantity exceeds option maximum")
	ErrMissingDependency   = errors.New("missing dependency")
	ErrIncompatibleOptions = errors.New("incompatible options")
)

// Finance validation errors.
var (
	ErrInvalidDepositPercent = errors.New("deposit percent must be between 10 and 50")
	ErrInvalidTerm           = errors.New("term must be one of 12, 24, 36, 48, 60, 72 or 84 months")
	ErrInvalidTotal          = errors.New("total must not be negative")
)

var validationErrors = []error{
	ErrUnknownModel,
	ErrUnknownOption,
	ErrOptionNotApplicable,
	ErrInvalidQuantity,
	ErrQuantityExceeded,
	ErrMissingDependency,
	ErrIncompatibleOptions,
	ErrInvalidDepositPercent,
	ErrInvalidTerm,
	ErrInvalidTotal,
}

// IsValidation reports whether err is one of the pricing validation errors.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
