// Package auth provides bearer-token issuance/verification and password
// hashing for the Request Façade's register/login endpoints. Account
// profile management beyond those two operations is out of scope.
//
// Grounded on services/user_service/internal/logic/auth_token.go's
// generateToken/parseToken pair (claims shape, HS256-only, issuer pinning).
package auth

import (
	stderrors "errors"
	"strconv"
	"time"

	"judgecore/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the façade's JWT payload: {user_id, username, exp, iat} plus
// the registered subject/issuer fields.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenTTL is the fixed token lifetime: 7 days.
const TokenTTL = 7 * 24 * time.Hour

// TokenVerifier issues and validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier builds a verifier over the shared HMAC secret. issuer may
// be empty to skip issuer pinning.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Issue signs a 7-day HS256 token for userID/username, used by the login
// and register endpoints.
func (v *TokenVerifier) Issue(userID int64, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(v.secret)
	if err != nil {
		return "", apperr.Wrapf(err, apperr.TokenGenerationFailed, "sign token failed")
	}
	return raw, nil
}

// Verify parses and validates raw, rejecting anything not signed HS256,
// expired, or missing a numeric subject.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, apperr.New(apperr.TokenInvalid)
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, stderrors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.TokenExpired)
		}
		return nil, apperr.New(apperr.TokenInvalid)
	}
	if !parsed.Valid {
		return nil, apperr.New(apperr.TokenInvalid)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, apperr.New(apperr.TokenInvalid)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, apperr.New(apperr.TokenInvalid)
	}
	if claims.Subject == "" {
		return nil, apperr.New(apperr.TokenInvalid)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.TokenInvalid)
	}
	claims.UserID = userID
	return claims, nil
}
