package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

func fixedSigner(secret string, ttl time.Duration, at time.Time) *LinkSigner {
	s := NewLinkSigner(secret, ttl)
	s.now = func() time.Time { return at }
	return s
}

func TestLinkSignerRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Hour, at)

	token, link, err := signer.Sign("run-1", "run-1/timetable.xlsx")
	require.NoError(t, err)
	assert.Equal(t, at.Add(time.Hour), link.ExpiresAt)

	parsed, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "run-1", parsed.RunID)
	assert.Equal(t, "run-1/timetable.xlsx", parsed.Path)
	assert.True(t, link.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestLinkSignerExpired(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Minute, at)
	token, _, err := signer.Sign("run-1", "run-1/timetable.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return at.Add(2 * time.Minute) }
	_, err = signer.Verify(token, false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	link, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "run-1/timetable.csv", link.Path)
}

func TestLinkSignerRejectsTampering(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	token, _, err := signer.Sign("run-1", "run-1/timetable.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "run-2"
	_, err = signer.Verify(strings.Join(parts, "."), false)
	assert.Error(t, err)

	other := NewLinkSigner("other", time.Hour)
	_, err = other.Verify(token, false)
	assert.Error(t, err)

	_, err = signer.Verify("garbage", false)
	assert.Error(t, err)
}

func TestLinkSignerRequiresSecret(t *testing.T) {
	_, _, err := NewLinkSigner("", time.Hour).Sign("run-1", "file.csv")
	require.Error(t, err)
	_, _, err = NewLinkSigner("secret", time.Hour).Sign("", "file.csv")
	require.Error(t, err)
}
