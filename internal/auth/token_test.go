package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody/internal/identity"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	user := identity.User{ID: "6b3c0a52-4d0e-4a8b-9d5e-1f0e7c2b9a11", Phone: "+2348000000001", Tier: identity.TierOne}

	tok, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.EqualValues(t, 60, tok.ExpiresIn)

	claims, err := issuer.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Tier, claims.Tier)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	user := identity.User{ID: "6b3c0a52-4d0e-4a8b-9d5e-1f0e7c2b9a11"}

	other, err := NewIssuer("other", time.Minute).Issue(user)
	require.NoError(t, err)
	_, err = issuer.Parse(other.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tok, err := issuer.Issue(user)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: user.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Minute).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("bearer  abc "))
	assert.Empty(t, ExtractBearer("Basic abc"))
	assert.Empty(t, ExtractBearer(""))
}
