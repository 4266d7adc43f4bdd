package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 200; i++ {
		code, err := Generate(now, DefaultTTL)
		require.NoError(t, err)

		require.Len(t, code.Value, 6)
		assert.Regexp(t, `^[1-9][0-9]{5}$`, code.Value)
		assert.Equal(t, now.Add(10*time.Minute), code.ExpiresAt)
	}
}

func TestValidate(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := Code{Value: "123456", ExpiresAt: issued.Add(DefaultTTL)}

	tests := []struct {
		name     string
		stored   Code
		provided string
		now      time.Time
		wantErr  error
	}{
		{
			name:     "valid code",
			stored:   stored,
			provided: "123456",
			now:      issued.Add(time.Minute),
		},
		{
			name:     "just before expiry",
			stored:   stored,
			provided: "123456",
			now:      stored.ExpiresAt.Add(-time.Nanosecond),
		},
		{
			name:     "at expiry",
			stored:   stored,
			provided: "123456",
			now:      stored.ExpiresAt,
			wantErr:  ErrExpired,
		},
		{
			name:     "after expiry",
			stored:   stored,
			provided: "123456",
			now:      stored.ExpiresAt.Add(time.Second),
			wantErr:  ErrExpired,
		},
		{
			name:     "mismatch",
			stored:   stored,
			provided: "654321",
			now:      issued,
			wantErr:  ErrMismatch,
		},
		{
			name:     "not issued",
			stored:   Code{},
			provided: "123456",
			now:      issued,
			wantErr:  ErrNotIssued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.stored, tt.provided, tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
