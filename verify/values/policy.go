package values

import "fmt"

// TrustPolicy tells the signature verifier how it may treat unknown signers
// for the current invocation.
type TrustPolicy int

const (
	// AutoKeyRetrieve permits fetching an unknown signer's key from the
	// configured keyserver and trusting it unconditionally. This is the
	// unsafe bootstrap step, selected only on first contact with a package.
	AutoKeyRetrieve TrustPolicy = iota

	// AlwaysTrustPinned restricts verification to keys already present in
	// the package's trust store. No key retrieval is permitted.
	AlwaysTrustPinned
)

// String returns the policy name.
func (p TrustPolicy) String() string {
	switch p {
	case AutoKeyRetrieve:
		return "auto-key-retrieve"
	case AlwaysTrustPinned:
		return "always-trust-pinned"
	default:
		return fmt.Sprintf("TrustPolicy(%d)", int(p))
	}
}
