package api

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"fielddispatch/domain"
)

// rolesClaim is the namespaced JWT claim carrying the operator's role flags.
const rolesClaim = "https://fielddispatch.app/roles"

// Auth validates incoming JWT tokens and extracts the acting operator.
type Auth struct {
	JWKS       *keyfunc.JWKS
	Audience   string
	Issuer     string
	TestMode   bool
	TestSecret []byte
}

// NewAuth creates a new Auth instance.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	a := &Auth{JWKS: jwks, Audience: audience, Issuer: issuer}
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		secret := os.Getenv("TEST_JWT_SECRET")
		if secret == "" {
			panic("TEST_JWT_SECRET must be set when AUTH_TEST_MODE=1")
		}
		a.TestMode = true
		a.TestSecret = []byte(secret)
	}
	return a
}

// OperatorFromAuthHeader extracts the operator identity from the
// Authorization header.
func (a *Auth) OperatorFromAuthHeader(h string) (domain.Operator, error) {
	if h == "" {
		return domain.Operator{}, errors.New("missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return domain.Operator{}, errors.New("bad auth header")
	}

	tokenStr := parts[1]
	if strings.Count(tokenStr, ".") != 2 {
		return domain.Operator{}, errors.New("bad auth header")
	}

	if a.TestMode {
		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.TestSecret, nil
		})
		if err != nil {
			return domain.Operator{}, err
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return domain.Operator{}, errors.New("invalid claims")
		}
		return operatorFromClaims(claims)
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, err := parser.Parse(tokenStr, a.JWKS.Keyfunc)
	if err != nil {
		return domain.Operator{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Operator{}, errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return domain.Operator{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return domain.Operator{}, errors.New("token not valid yet")
	}
	if !claims.VerifyAudience(a.Audience, false) {
		return domain.Operator{}, errors.New("invalid audience")
	}
	if !claims.VerifyIssuer(a.Issuer, false) {
		return domain.Operator{}, errors.New("invalid issuer")
	}
	return operatorFromClaims(claims)
}

func operatorFromClaims(claims jwt.MapClaims) (domain.Operator, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.Operator{}, errors.New("missing sub")
	}
	op := domain.Operator{ID: sub}
	if name, ok := claims["name"].(string); ok {
		op.Name = name
	}
	if raw, ok := claims[rolesClaim].([]interface{}); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				op.Roles = append(op.Roles, role)
			}
		}
	}
	return op, nil
}
