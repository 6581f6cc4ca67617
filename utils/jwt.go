package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DownloadClaims authorise fetching one output file.
type DownloadClaims struct {
	jwt.RegisteredClaims
}

// GenerateDownloadToken issues a token whose subject is filename.
func GenerateDownloadToken(secret, filename string, duration time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("download signing key not configured")
	}
	now := time.Now()
	claims := DownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   filename,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseDownloadToken validates a token and checks that it was issued for filename.
func ParseDownloadToken(secret, tokenStr, filename string) (*DownloadClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*DownloadClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject != filename {
		return nil, errors.New("token issued for a different file")
	}
	return claims, nil
}
