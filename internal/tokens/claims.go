package tokens

import "github.com/golang-jwt/jwt/v5"

// AccessClaims identify the caller on every authenticated request. The
// profile fields are echoed for clients and are not trusted server side.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}
