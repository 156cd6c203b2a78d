package cms

import "fmt"

// ErrorPolicy decides what the block renderer does with a failing block.
type ErrorPolicy int

const (
	// PolicyDegrade logs the failure and renders an empty response.
	PolicyDegrade ErrorPolicy = iota
	// PolicyStrict returns the failure to the caller.
	PolicyStrict
)

// PolicyFromDebug maps the cms.debug switch onto a policy.
func PolicyFromDebug(debug bool) ErrorPolicy {
	if debug {
		return PolicyStrict
	}
	return PolicyDegrade
}

func (p ErrorPolicy) String() string {
	switch p {
	case PolicyDegrade:
		return "degrade"
	case PolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}
