package scan

import (
	"errors"
	"fmt"
)

// ErrNilExclusions is returned when a collection or policy is
// constructed without an exclusion matcher.
var ErrNilExclusions = errors.New("exclusion matcher is nil")

// PolicyNotFoundError reports a lookup for an arn no retained policy
// carries.
type PolicyNotFoundError struct {
	ARN string
}

func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("no managed policy with arn %s", e.ARN)
}

// NoDefaultVersionError reports a policy record whose version list has
// no entry flagged as the default. The input is malformed and not
// recoverable; collection construction stops without a partial result.
type NoDefaultVersionError struct {
	PolicyName string
}

func (e *NoDefaultVersionError) Error() string {
	return fmt.Sprintf("policy %s has no version flagged as default", e.PolicyName)
}

// MalformedARNError reports a policy arn that cannot be parsed when
// deriving the owning account.
type MalformedARNError struct {
	ARN string
}

func (e *MalformedARNError) Error() string {
	return fmt.Sprintf("malformed policy arn %q", e.ARN)
}
