package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Scope: "ROLE_ADMIN ROLE_STAFF",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func sampleSession(token string, roles ...string) *Session {
	s := &Session{
		Token: token,
		User: User{
			ID:        "u-1",
			Username:  "alice",
			FirstName: "Alice",
			LastName:  "Nguyen",
		},
	}
	for _, r := range roles {
		s.User.Roles = append(s.User.Roles, Role{Name: r, Permissions: []string{r + "_READ"}})
	}
	return s
}
