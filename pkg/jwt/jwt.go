package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles reconocidos por la API.
const (
	RoleAdmin    = "admin"    // todo, incluida la consulta de cualquier emisor
	RoleEmisor   = "emisor"   // timbra y cancela a nombre de su RFC
	RoleConsulta = "consulta" // sólo lectura
)

// Claims incluye los claims estándar JWT más el RFC del emisor y el rol del cliente.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Rfc      string `json:"rfc"`
	Role     string `json:"role"`
}

// ErrInvalidToken token mal formado, expirado o con firma incorrecta.
var ErrInvalidToken = errors.New("jwt: token inválido")

var errEmptySecret = errors.New("jwt: secret vacío")

// Generate firma (HS256) un token para el sistema cliente clientID, autorizado a
// operar con el RFC indicado. expMinutes negativo produce un token ya vencido.
func Generate(secret, clientID, rfc, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", errEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		ClientID: clientID,
		Rfc:      strings.ToUpper(rfc),
		Role:     role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y vigencia y devuelve clientID, rfc y role. Sólo acepta HS256.
func Parse(secret, tokenString string) (clientID, rfc, role string, err error) {
	if secret == "" {
		return "", "", "", errEmptySecret
	}
	var claims Claims
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.ClientID, claims.Rfc, claims.Role, nil
}
