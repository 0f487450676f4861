package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "no cause",
			err:      New(KindNotFound, "card missing"),
			expected: "not_found: card missing",
		},
		{
			name:     "wrapped cause",
			err:      Wrap(KindUpstreamUnavailable, "catalog query failed", errors.New("conn reset")),
			expected: "upstream_unavailable: catalog query failed: conn reset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindInternal, "failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIs(t *testing.T) {
	err := New(KindTimeout, "deadline exceeded")
	assert.True(t, Is(err, KindTimeout))
	assert.False(t, Is(err, KindInternal))
	assert.False(t, Is(errors.New("plain"), KindTimeout))
}
