package claim

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
)

// TokenClaims binds a claim token to one request for QR verification.
type TokenClaims struct {
	RequestID string `json:"request_id"`
	jwt.RegisteredClaims
}

// TokenService mints and validates signed claim tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewTokenService(signingKey string, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Mint issues a token for the request. Returns the compact token, its jti,
// and the expiry recorded on the aggregate.
func (s *TokenService) Mint(requestID id.RequestID, now time.Time) (token string, jti string, expiry time.Time, err error) {
	jti = uuid.NewString()
	expiry = now.Add(s.ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RequestID: requestID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   requestID.String(),
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})
	token, err = newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiry, nil
}

// Validate decodes a claim token. An expired token reports CodeClaimExpired;
// every other decode failure reports CodeClaimMismatch so callers cannot
// distinguish forgery classes.
func (s *TokenService) Validate(tokenString string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeClaimExpired, "claim token has expired")
		}
		return nil, dErrors.New(dErrors.CodeClaimMismatch, "invalid claim token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeClaimMismatch, "invalid claim token")
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeClaimMismatch, "invalid claim token claims")
	}
	return claims, nil
}
