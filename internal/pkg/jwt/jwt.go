package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const sseTokenTTL = 5 * time.Minute

type Service interface {
	GenerateAccessToken(p user.Principal) (token string, expiresAt int64, err error)
	GenerateSSEToken(p user.Principal) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Principal, error)
	JWTAuth() *jwtauth.JWTAuth
}

// JWTService signs HS256 tokens. Access tokens are normally issued by the identity
// service that shares the secret; GenerateAccessToken exists for tooling and tests.
type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	exp, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("invalid access token expiration: %w", err)
	}
	return &JWTService{
		accessTokenExpirationTime: exp,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}, nil
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(p user.Principal) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpirationTime).Unix()
	_, token, err = j.tokenAuth.Encode(j.claims(p, "access", expiresAt))
	return token, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for EventSource connections, which cannot send headers
func (j *JWTService) GenerateSSEToken(p user.Principal) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(sseTokenTTL).Unix()
	_, token, err = j.tokenAuth.Encode(j.claims(p, "sse", expiresAt))
	if err != nil {
		return "", 0, err
	}
	return token, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken verifies an SSE token and returns its principal
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Principal, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.Principal{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.Principal{}, err
	}
	if tokenType, _ := claims["type"].(string); tokenType != "sse" {
		return user.Principal{}, jwt.ErrInvalidJWT()
	}

	return user.PrincipalFromClaims(claims)
}

func (j *JWTService) claims(p user.Principal, tokenType string, expiresAt int64) map[string]interface{} {
	claims := map[string]interface{}{
		"user_id": p.UserID,
		"role":    string(p.Role),
		"type":    tokenType,
		"exp":     expiresAt,
	}
	if p.EmployeeID != "" {
		claims["employee_id"] = p.EmployeeID
	}
	return claims
}
