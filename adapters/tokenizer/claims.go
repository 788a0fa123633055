package tokenizer

import "github.com/golang-jwt/jwt/v5"

// GrantClaims are the standard claims of a registration grant; the subject is the address
type GrantClaims struct {
	jwt.RegisteredClaims
}
