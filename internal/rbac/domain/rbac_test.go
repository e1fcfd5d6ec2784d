package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPermission_Satisfies(t *testing.T) {
	tests := []struct {
		name       string
		permission Permission
		resource   string
		action     string
		want       bool
	}{
		{
			name:       "ExactMatch",
			permission: Permission{Resource: "shell", Action: "execute"},
			resource:   "shell",
			action:     "execute",
			want:       true,
		},
		{
			name:       "WildcardAction",
			permission: Permission{Resource: "shell", Action: "*"},
			resource:   "shell",
			action:     "delete",
			want:       true,
		},
		{
			name:       "WrongResource",
			permission: Permission{Resource: "fs", Action: "*"},
			resource:   "shell",
			action:     "execute",
			want:       false,
		},
		{
			name:       "WrongAction",
			permission: Permission{Resource: "shell", Action: "execute"},
			resource:   "shell",
			action:     "delete",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.permission.Satisfies(tt.resource, tt.action))
		})
	}
}

func TestTimeWindow_Contains(t *testing.T) {
	at := func(clock string) time.Time {
		parsed, err := time.Parse("15:04", clock)
		if err != nil {
			t.Fatalf("bad clock %q: %v", clock, err)
		}
		return time.Date(2026, 3, 14, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	}

	business := &TimeWindow{NotBefore: "09:00", NotAfter: "17:00"}
	assert.True(t, business.Contains(at("09:00")))
	assert.True(t, business.Contains(at("12:30")))
	assert.True(t, business.Contains(at("17:00")))
	assert.False(t, business.Contains(at("08:59")))
	assert.False(t, business.Contains(at("17:01")))

	overnight := &TimeWindow{NotBefore: "22:00", NotAfter: "06:00"}
	assert.True(t, overnight.Contains(at("23:30")))
	assert.True(t, overnight.Contains(at("03:00")))
	assert.False(t, overnight.Contains(at("12:00")))

	malformed := &TimeWindow{NotBefore: "not-a-time", NotAfter: "17:00"}
	assert.False(t, malformed.Contains(at("12:00")), "malformed bounds fail closed")
}

func TestConstraint_Violation(t *testing.T) {
	noon := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("Unconstrained", func(t *testing.T) {
		c := &Constraint{}
		_, violated := c.Violation(noon, "10.0.0.1")
		assert.False(t, violated)
	})

	t.Run("TimeWindowViolated", func(t *testing.T) {
		c := &Constraint{TimeWindow: &TimeWindow{NotBefore: "14:00", NotAfter: "18:00"}}
		reason, violated := c.Violation(noon, "10.0.0.1")
		assert.True(t, violated)
		assert.Contains(t, reason, "time window")
	})

	t.Run("IPAllowlistExact", func(t *testing.T) {
		c := &Constraint{IPAllowlist: []string{"10.0.0.1"}}
		_, violated := c.Violation(noon, "10.0.0.1")
		assert.False(t, violated)

		_, violated = c.Violation(noon, "10.0.0.2")
		assert.True(t, violated)
	})

	t.Run("IPAllowlistCIDR", func(t *testing.T) {
		c := &Constraint{IPAllowlist: []string{"192.168.0.0/16"}}
		_, violated := c.Violation(noon, "192.168.42.7")
		assert.False(t, violated)

		_, violated = c.Violation(noon, "172.16.0.1")
		assert.True(t, violated)
	})

	t.Run("UnparsableClientIPFailsClosed", func(t *testing.T) {
		c := &Constraint{IPAllowlist: []string{"10.0.0.1"}}
		_, violated := c.Violation(noon, "not-an-ip")
		assert.True(t, violated)
	})
}
