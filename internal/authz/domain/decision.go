// Package domain defines the authorization decision shape.
package domain

// Decision is the outcome of one authorization check. Denials carry their
// specifics here for internal diagnostics rather than in an error: a denied
// check is a valid result, not a failure of the engine.
type Decision struct {
	Granted bool `json:"granted"`
	// Reason is set on denials.
	Reason string `json:"reason,omitempty"`
	// RequiredPermissions names the registered permissions the request had to
	// satisfy.
	RequiredPermissions []string `json:"requiredPermissions,omitempty"`
	// UserPermissions names the caller's permission set resolved from the live
	// role graph at decision time.
	UserPermissions []string `json:"userPermissions,omitempty"`
	// ViolatedConstraints lists constraint violations that forced a denial.
	ViolatedConstraints []string `json:"violatedConstraints,omitempty"`
}
