package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig is the immutable signing configuration for both token classes.
// It is built once at startup from config.Config.
type TokenConfig struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Issuer        string
}

// Token is a signed JWT string along with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// AccessClaims is the payload of an access token: the account identity plus
// the registered claims. Subject carries the account id.
type AccessClaims struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the account id (Subject) and expiry. ID (jti)
// is random so two refresh tokens minted in the same second still differ.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *AccessClaims) AccountID() (uint64, error) { return parseSubject(c.Subject) }

// AccountID parses the subject claim.
func (c *RefreshClaims) AccountID() (uint64, error) { return parseSubject(c.Subject) }

func parseSubject(sub string) (uint64, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid subject claim")
	}
	return id, nil
}

// Issuer signs and verifies access and refresh tokens with HS256. Access and
// refresh tokens use separate secrets and carry a typ claim, so neither can
// be replayed as the other.
type Issuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg TokenConfig) (*Issuer, error) {
	switch {
	case len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0:
		return nil, errors.New("auth: token secrets are required")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("auth: token expiries must be positive")
	}
	// NumericDate claims carry whole seconds, so Token.ExpiresAt must too.
	return &Issuer{cfg: cfg, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}, nil
}

// IssueAccess signs {id, email, username, fullName} with the access secret.
func (i *Issuer) IssueAccess(a model.Account) (Token, error) {
	now := i.now()
	exp := now.Add(i.cfg.AccessTTL)
	claims := AccessClaims{
		Email:            a.Email,
		Username:         a.Username,
		FullName:         a.FullName,
		TokenType:        tokenTypeAccess,
		RegisteredClaims: i.registered(a.ID, now, exp),
	}
	return i.sign(claims, i.cfg.AccessSecret, exp)
}

// IssueRefresh signs {id} with the refresh secret and the longer expiry.
func (i *Issuer) IssueRefresh(a model.Account) (Token, error) {
	now := i.now()
	exp := now.Add(i.cfg.RefreshTTL)
	claims := RefreshClaims{
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: i.registered(a.ID, now, exp),
	}
	return i.sign(claims, i.cfg.RefreshSecret, exp)
}

// VerifyAccess checks signature, algorithm, expiry and token type.
func (i *Issuer) VerifyAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(raw, &claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, apperr.InvalidToken("invalid access token")
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "invalid access token", err)
	}
	return &claims, nil
}

// VerifyRefresh checks signature, algorithm, expiry and token type.
func (i *Issuer) VerifyRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(raw, &claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, apperr.InvalidToken("invalid refresh token")
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "invalid refresh token", err)
	}
	return &claims, nil
}

func (i *Issuer) registered(id uint64, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(id, 10),
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
}

func (i *Issuer) sign(claims jwt.Claims, secret []byte, exp time.Time) (Token, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, apperr.Internal("failed to sign token", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

func (i *Issuer) parse(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.KindInvalidToken, "jwt expired", err)
	case err != nil:
		return apperr.Wrap(apperr.KindInvalidToken, "invalid token", err)
	case !tok.Valid:
		return apperr.InvalidToken("invalid token")
	}
	return nil
}
