package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("super-secret"), time.Hour, clockwork.NewFakeClockAt(t0))

	tok, err := iss.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), tok.ExpiresAt)

	claims, err := iss.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, tok.ID, claims.ID)
	assert.True(t, claims.ExpiresAt.Time.Equal(tok.ExpiresAt))
}

func TestIssue_UniqueIDs(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("k"), time.Hour, nil)
	a, err := iss.Issue(1)
	require.NoError(t, err)
	b, err := iss.Issue(1)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClockAt(t0)
	iss := NewIssuer([]byte("secret"), time.Minute, fc)

	tok, err := iss.Issue(1)
	require.NoError(t, err)

	fc.Advance(2 * time.Minute)

	_, err = iss.Parse(tok.Value)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer([]byte("right-secret"), time.Hour, nil).Issue(2)
	require.NoError(t, err)

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour, nil).Parse(tok.Value)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer([]byte("k"), time.Hour, nil).Parse("not.a.jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 3,
	})
	s, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewIssuer([]byte("k"), time.Hour, nil).Parse(s)
	require.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestParse_RequiresJTI(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 3,
	})
	s, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewIssuer([]byte("k"), time.Hour, nil).Parse(s)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
