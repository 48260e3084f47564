package claim

import (
	"context"
	"errors"
	"time"

	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
)

// ConsumedStore tracks claim token jtis that have already been redeemed.
type ConsumedStore interface {
	MarkConsumed(ctx context.Context, jti string, ttl time.Duration) error
	IsConsumed(ctx context.Context, jti string) (bool, error)
}

// Ticket is a freshly issued pickup credential. Code is plaintext and is
// returned exactly once at issuance; only the derived forms are persisted.
type Ticket struct {
	Code          string
	CodeHash      string
	CodeEncrypted string
	CodeMasked    string
	Token         string
	TokenJTI      string
	TokenExpiry   time.Time
}

// Credential is the stored verification material for a request.
type Credential struct {
	CodeHash    string
	TokenJTI    string
	TokenExpiry *time.Time
}

// VerifyInput carries whichever credential the counter received.
type VerifyInput struct {
	Token string
	Code  string
}

// Service issues and verifies claim tickets.
type Service struct {
	tokens   *TokenService
	cipher   *Cipher
	consumed ConsumedStore
}

func NewService(tokens *TokenService, cipher *Cipher, consumed ConsumedStore) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if cipher == nil {
		return nil, errors.New("code cipher is required")
	}
	if consumed == nil {
		return nil, errors.New("consumed store is required")
	}
	return &Service{tokens: tokens, cipher: cipher, consumed: consumed}, nil
}

// Issue generates the full credential set for a request entering ready.
func (s *Service) Issue(requestID id.RequestID, now time.Time) (*Ticket, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	hash, err := HashCode(code)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(code)
	if err != nil {
		return nil, err
	}
	token, jti, expiry, err := s.tokens.Mint(requestID, now)
	if err != nil {
		return nil, err
	}
	return &Ticket{
		Code:          code,
		CodeHash:      hash,
		CodeEncrypted: encrypted,
		CodeMasked:    MaskCode(code),
		Token:         token,
		TokenJTI:      jti,
		TokenExpiry:   expiry,
	}, nil
}

// ResolveRequestID extracts the bound request id from a claim token so the
// counter can verify from a QR scan alone. Expiry is still reported here:
// an expired token never silently falls back to another lookup path.
func (s *Service) ResolveRequestID(token string) (id.RequestID, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return id.RequestID{}, err
	}
	return id.ParseRequestID(claims.RequestID)
}

// Verify checks a submitted credential against the stored material.
//
// When a token is present it is authoritative: an expired or malformed
// token fails verification even if a correct fallback code accompanies it.
// Without a token, the code is compared against the stored hash.
func (s *Service) Verify(ctx context.Context, requestID id.RequestID, cred Credential, in VerifyInput) error {
	if in.Token != "" {
		return s.verifyToken(ctx, requestID, cred, in.Token)
	}
	if in.Code == "" {
		return dErrors.New(dErrors.CodeClaimMismatch, "no claim credential supplied")
	}
	if cred.CodeHash == "" {
		return dErrors.New(dErrors.CodeClaimMismatch, "no claim ticket issued for this request")
	}
	return VerifyCode(in.Code, cred.CodeHash)
}

func (s *Service) verifyToken(ctx context.Context, requestID id.RequestID, cred Credential, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return err
	}
	if claims.RequestID != requestID.String() {
		return dErrors.New(dErrors.CodeClaimMismatch, "claim token does not reference this request")
	}
	if cred.TokenJTI == "" || claims.ID != cred.TokenJTI {
		return dErrors.New(dErrors.CodeClaimMismatch, "claim token superseded by a newer ticket")
	}
	used, err := s.consumed.IsConsumed(ctx, claims.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not check claim token state")
	}
	if used {
		return dErrors.New(dErrors.CodeClaimMismatch, "claim token already used")
	}
	return nil
}

// Consume records a redeemed token jti until its expiry so a replay across
// instances is rejected even while the status write propagates.
func (s *Service) Consume(ctx context.Context, jti string, expiry *time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Minute
	if expiry != nil {
		if remaining := time.Until(*expiry); remaining > ttl {
			ttl = remaining
		}
	}
	return s.consumed.MarkConsumed(ctx, jti, ttl)
}

// Reveal decrypts the stored pickup code for the request owner.
func (s *Service) Reveal(encrypted string) (string, error) {
	if encrypted == "" {
		return "", dErrors.New(dErrors.CodeNotFound, "no pickup code on record")
	}
	code, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not reveal pickup code")
	}
	return code, nil
}
