package validate_test

import (
	"testing"

	"github.com/Astemirdum/library-portal/pkg/validate"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"Admin1234", true},
		{"short1a", false},
		{"onlyletters", false},
		{"1234567890", false},
		{"пароль123", false},
		{"пароль12a", true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, validate.Password(tt.in), tt.in)
	}
}

func TestCustomValidator_Validate(t *testing.T) {
	t.Parallel()
	type req struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,password"`
	}
	v := validate.NewCustomValidator()
	require.NoError(t, v.Validate(req{Email: "reader@lib.com", Password: "Reader123"}))
	require.Error(t, v.Validate(req{Email: "reader@lib.com", Password: "reader"}))
	require.Error(t, v.Validate(req{Email: "nope", Password: "Reader123"}))
}
