package pipeline

import (
	"strings"

	"loanverify/internal/errors"
)

// FailurePolicy decides what happens when one of the independent
// verification stages fails
type FailurePolicy string

const (
	// PolicyAbort stops the run and reports the first failed stage
	PolicyAbort FailurePolicy = "abort"
	// PolicyDegrade substitutes a worst-case verdict and carries on
	PolicyDegrade FailurePolicy = "degrade"
)

// ParseFailurePolicy accepts abort or degrade, case-insensitively. Empty means abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyDegrade:
		return PolicyDegrade, nil
	default:
		return "", errors.ConfigInvalid("unknown failure policy: " + s)
	}
}
