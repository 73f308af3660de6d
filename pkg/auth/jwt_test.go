package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewTokenIssuer("0123456789abcdef", time.Hour)
	tok, err := iss.Issue("u1")
	require.NoError(t, err)

	sub, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)
}

func TestParseRejectsForeignAndExpired(t *testing.T) {
	tok, err := NewTokenIssuer("0123456789abcdef", time.Hour).Issue("u1")
	require.NoError(t, err)
	_, err = NewTokenIssuer("fedcba9876543210", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	iss := &TokenIssuer{secret: []byte("0123456789abcdef"), ttl: -time.Minute}
	expired, err := iss.Issue("u1")
	require.NoError(t, err)
	_, err = iss.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
