package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/localvault/internal/errors"
)

func TestSecretName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"simple name", "api_key", false},
		{"with hyphen", "openai-api-key", false},
		{"digits", "key123", false},
		{"single char", "a", false},
		{"max length", stringOfLen(100), false},
		{"empty", "", true},
		{"too long", stringOfLen(101), true},
		{"spaces", "api key", true},
		{"path traversal", "../etc/passwd", true},
		{"slash", "a/b", true},
		{"dot", "a.b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SecretName.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("not a string", func(t *testing.T) {
		assert.Error(t, SecretName.Validate(42))
	})
}

func TestUsername(t *testing.T) {
	assert.NoError(t, Username.Validate("alice"))
	assert.NoError(t, Username.Validate("alice.smith-2"))
	assert.Error(t, Username.Validate(""))
	assert.Error(t, Username.Validate("alice smith"))
	assert.Error(t, Username.Validate(stringOfLen(65)))
}

func TestPasswordStrength(t *testing.T) {
	rule := PasswordStrength{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}

	t.Run("valid password", func(t *testing.T) {
		assert.NoError(t, rule.Validate("Sup3rSecret"))
	})

	t.Run("too short", func(t *testing.T) {
		err := rule.Validate("Ab1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8")
	})

	t.Run("missing uppercase", func(t *testing.T) {
		assert.Error(t, rule.Validate("sup3rsecret"))
	})

	t.Run("missing number", func(t *testing.T) {
		assert.Error(t, rule.Validate("SuperSecret"))
	})

	t.Run("not a string", func(t *testing.T) {
		assert.Error(t, rule.Validate(42))
	})

	t.Run("special character required", func(t *testing.T) {
		strict := PasswordStrength{MinLength: 8, RequireSpecial: true}
		assert.Error(t, strict.Validate("Sup3rSecret"))
		assert.NoError(t, strict.Validate("Sup3rSecret!"))
	})
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		err := WrapValidationError(SecretName.Validate(""))
		assert.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
