package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by reviewer tokens. Only the registered
// claim set is used; the subject identifies the reviewer.
type Claims struct {
	jwt.RegisteredClaims
}
