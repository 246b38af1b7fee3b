package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

// Link identifies a stored export artifact.
type Link struct {
	RunID     string
	Path      string
	ExpiresAt time.Time
}

// LinkSigner issues and verifies HMAC-signed download tokens.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer. A non-positive ttl defaults to one day.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued links.
func (s *LinkSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token for the artifact at relPath produced by runID.
func (s *LinkSigner) Sign(runID, relPath string) (string, Link, error) {
	if runID == "" || relPath == "" {
		return "", Link{}, appErrors.Clone(appErrors.ErrValidation, "run id and path are required")
	}
	if len(s.secret) == 0 {
		return "", Link{}, appErrors.Clone(appErrors.ErrInternal, "link signing secret is not configured")
	}
	link := Link{RunID: runID, Path: relPath, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	expires := strconv.FormatInt(link.ExpiresAt.Unix(), 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{runID, expires, encoded, s.mac(runID, expires, encoded)}, ".")
	return token, link, nil
}

// Verify checks the token signature and, unless allowExpired is set, its
// expiry.
func (s *LinkSigner) Verify(token string, allowExpired bool) (Link, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Link{}, appErrors.Clone(appErrors.ErrForbidden, "malformed export link")
	}
	runID, expires, encoded, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(runID, expires, encoded)), []byte(signature)) {
		return Link{}, appErrors.Clone(appErrors.ErrForbidden, "invalid export link signature")
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return Link{}, appErrors.Clone(appErrors.ErrForbidden, "malformed export link")
	}
	path, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Link{}, appErrors.Clone(appErrors.ErrForbidden, "malformed export link")
	}

	link := Link{RunID: runID, Path: string(path), ExpiresAt: time.Unix(unix, 0)}
	if !allowExpired && s.now().After(link.ExpiresAt) {
		return Link{}, appErrors.Clone(appErrors.ErrForbidden, "export link expired")
	}
	return link, nil
}

func (s *LinkSigner) mac(runID, expires, encoded string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(runID + "|" + expires + "|" + encoded))
	return hex.EncodeToString(h.Sum(nil))
}
