package auth

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hubauth/config"
	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/service"
	"hubauth/internal/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
// Its secret, algorithm and default lifetime are fixed at construction.
type jwtService struct {
	secret    []byte            // Key for signing access tokens.
	method    jwt.SigningMethod // HMAC family only.
	accessTTL time.Duration     // Default time-to-live for access tokens.
}

// NewJWTService is the constructor for jwtService, taking the resolved signing secret
// and the auth section of the configuration.
func NewJWTService(cfg *config.Config, secret SigningSecret) (service.TokenService, error) {
	if cfg.Auth == nil {
		return nil, errors.New("auth configuration is required")
	}

	return NewJWTServiceWithOptions(secret, cfg.Auth.SigningAlgorithm, cfg.Auth.AccessTokenTTL)
}

// NewJWTServiceWithOptions builds the service from explicit values. Only HMAC algorithms are accepted.
func NewJWTServiceWithOptions(secret []byte, algorithm string, accessTTL time.Duration) (service.TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must be provided")
	}
	if accessTTL <= 0 {
		return nil, errors.Errorf("access token ttl must be positive, got %s", accessTTL)
	}

	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &jwtService{
		secret:    secret,
		method:    method,
		accessTTL: accessTTL,
	}, nil
}

// Issue creates a signed access token for subjectID.
func (s *jwtService) Issue(subjectID int64, now time.Time, ttl time.Duration) (*entity.AccessToken, error) {
	if subjectID <= 0 {
		return nil, errors.Errorf("invalid subject id %d", subjectID)
	}
	if ttl <= 0 {
		ttl = s.accessTTL
	}

	issuedAt := now.Unix()
	expiresAt := now.Add(ttl).Unix()

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(subjectID, 10), // Subject (who the token is for)
		"iat": issuedAt,                         // Issued At
		"exp": expiresAt,                        // Expiration Time
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}

	return &entity.AccessToken{
		Subject:   subjectID,
		IssuedAt:  time.Unix(issuedAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
		Raw:       signed,
	}, nil
}

// Validate verifies signature, algorithm and expiry of tokenString as of now
// and returns the authenticated subject. A token is valid while now < exp.
func (s *jwtService) Validate(tokenString string, now time.Time) (*entity.AccessToken, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken.WrapMessage(err.Error())
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domainerrors.ErrInvalidToken
	}

	subject, err := subjectFromClaims(claims)
	if err != nil {
		return nil, err
	}

	accessToken := &entity.AccessToken{
		Subject: subject,
		Raw:     tokenString,
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		accessToken.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		accessToken.IssuedAt = iat.Time
	}

	return accessToken, nil
}

// subjectFromClaims accepts the decimal string form this service issues and the
// integral numeric form older tokens carry.
func subjectFromClaims(claims jwt.MapClaims) (int64, error) {
	raw, present := claims["sub"]
	if !present || raw == nil {
		return 0, domainerrors.ErrMissingSubject
	}

	var id int64
	switch sub := raw.(type) {
	case string:
		sub = strings.TrimSpace(sub)
		if sub == "" {
			return 0, domainerrors.ErrMissingSubject
		}
		parsed, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return 0, domainerrors.ErrMalformedSubject
		}
		id = parsed
	case float64:
		if sub != math.Trunc(sub) || sub >= math.MaxInt64 || sub < math.MinInt64 {
			return 0, domainerrors.ErrMalformedSubject
		}
		id = int64(sub)
	case json.Number:
		parsed, err := sub.Int64()
		if err != nil {
			return 0, domainerrors.ErrMalformedSubject
		}
		id = parsed
	default:
		return 0, domainerrors.ErrMalformedSubject
	}

	if id <= 0 {
		return 0, domainerrors.ErrMalformedSubject
	}

	return id, nil
}
