// Package auth issues and validates the HS256 session tokens handed to blog
// clients as a cookie or bearer token.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Claims are the registered claims plus the numeric user id.
// Subject carries the same id as a string; ID is the revocable jti.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Token is a signed session token with the identifiers needed to revoke it.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewIssuer(secret []byte, ttl time.Duration, clock clockwork.Clock) *Issuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{secret: secret, ttl: ttl, clock: clock}
}

// TTL is the lifetime of every token this issuer signs.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a new token for userID. ExpiresAt is truncated to whole
// seconds, the precision of the exp claim.
func (i *Issuer) Issue(userID int64) (*Token, error) {
	now := i.clock.Now()
	exp := now.Add(i.ttl).Truncate(time.Second)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
	})

	s, err := token.SignedString(i.secret)
	if err != nil {
		return nil, err
	}
	return &Token{Value: s, ID: jti, ExpiresAt: exp}, nil
}

// Parse verifies tokenString and returns its claims. An expired token yields
// common.ErrTokenExpired; anything else that fails yields common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.ID == "" || claims.UserID == 0 {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
