// Package domain defines the permission and role entities of the access
// control graph.
package domain

import (
	"net"
	"time"
)

// TimeWindow restricts a permission to a daily clock-time range. Times use the
// "15:04" layout. A window with NotBefore after NotAfter wraps past midnight.
type TimeWindow struct {
	NotBefore string `json:"notBefore"`
	NotAfter  string `json:"notAfter"`
}

// clockLayout is the wall-clock layout for time window bounds.
const clockLayout = "15:04"

// Contains reports whether the wall-clock time of now falls inside the window.
// Malformed bounds fail closed.
func (w *TimeWindow) Contains(now time.Time) bool {
	from, err := time.Parse(clockLayout, w.NotBefore)
	if err != nil {
		return false
	}
	to, err := time.Parse(clockLayout, w.NotAfter)
	if err != nil {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	fromMinute := from.Hour()*60 + from.Minute()
	toMinute := to.Hour()*60 + to.Minute()

	if fromMinute <= toMinute {
		return minute >= fromMinute && minute <= toMinute
	}
	// Overnight window, e.g. 22:00-06:00.
	return minute >= fromMinute || minute <= toMinute
}

// Constraint is a predicate attached to a permission that can deny access even
// when the permission itself matches. Zero-value fields are unconstrained.
type Constraint struct {
	TimeWindow  *TimeWindow `json:"timeWindow,omitempty"`
	IPAllowlist []string    `json:"ipAllowlist,omitempty"`
}

// Violation evaluates the constraint at the given time and client IP. It
// returns a human-readable reason and true when the constraint is violated.
func (c *Constraint) Violation(now time.Time, ipAddress string) (string, bool) {
	if c.TimeWindow != nil && !c.TimeWindow.Contains(now) {
		return "outside allowed time window " + c.TimeWindow.NotBefore + "-" + c.TimeWindow.NotAfter, true
	}
	if len(c.IPAllowlist) > 0 && !ipAllowed(c.IPAllowlist, ipAddress) {
		return "ip address not in allowlist", true
	}
	return "", false
}

// ipAllowed reports whether ipAddress matches an allowlist entry. Entries are
// exact IPs or CIDR blocks. An unparsable client address fails closed.
func ipAllowed(allowlist []string, ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	for _, entry := range allowlist {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			if network.Contains(ip) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(ip) {
			return true
		}
	}
	return false
}

// WildcardAction matches any required action on the same resource.
const WildcardAction = "*"

// Permission grants an action on a resource, optionally bounded by constraints.
// A permission is immutable once referenced by a role.
type Permission struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Resource    string       `json:"resource"`
	Action      string       `json:"action"`
	Constraints []Constraint `json:"constraints,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Satisfies reports whether this permission covers the required resource and
// action, counting the wildcard action as a match.
func (p *Permission) Satisfies(resource, action string) bool {
	return p.Resource == resource && (p.Action == action || p.Action == WildcardAction)
}

// Role groups direct permissions and inherits others. The inheritance graph is
// kept acyclic by the use case.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
	Inherits    []string  `json:"inherits,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
