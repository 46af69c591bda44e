package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/mpruett/studiohub/internal/types"
)

const (
	subClaim  = "sub"
	nameClaim = "name"
	roleClaim = "role"

	// Claim defaults applied when the issuing service omits them.
	defaultName = "User"
	defaultRole = "VIEWER"

	tokenQueryParam = "token"
	bearerPrefix    = "Bearer "
)

// CredentialFromRequest extracts the bearer credential from a connection
// handshake: the "token" query parameter first, then a standard
// "Authorization: Bearer" header. Returns the empty string if neither is set.
func CredentialFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get(tokenQueryParam); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}

	return ""
}

// VerifyCredential checks the HS256 signature and expiry of tokenString and
// derives the identity from its claims. The token is minted by the external
// account service; this tier only verifies it.
func VerifyCredential(tokenString string, signingKey []byte) (types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return types.User{}, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return types.User{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.User{}, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims[subClaim].(string)
	if !ok || sub == "" {
		return types.User{}, fmt.Errorf("missing subject claim")
	}

	user := types.User{
		Id:   sub,
		Name: defaultName,
		Role: defaultRole,
	}
	if name, ok := claims[nameClaim].(string); ok && name != "" {
		user.Name = name
	}
	if role, ok := claims[roleClaim].(string); ok && role != "" {
		user.Role = role
	}

	return user, nil
}
