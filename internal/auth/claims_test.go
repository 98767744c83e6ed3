package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("bench-rig", RoleOperator, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "bench-rig" {
		t.Errorf("Subject = %q, want bench-rig", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", claims.Role)
	}
	if claims.ID == "" {
		t.Error("JTI should not be empty")
	}
	if got := time.Until(claims.ExpiresAt.Time); got > time.Hour || got < 59*time.Minute {
		t.Errorf("expires in %v, want about 1h", got)
	}
}

func TestIssueToken_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		secret string
		want   error
	}{
		{"unknown role", Role("root"), testSecret, ErrUnknownRole},
		{"short secret", RoleViewer, "short", ErrSecretTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IssueToken("x", tt.role, tt.secret, 0); !errors.Is(err, tt.want) {
				t.Errorf("IssueToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := IssueToken("x", RoleViewer, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	sign := func(c Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", valid},
		{"garbage", "not.a.token"},
		{"expired", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no expiry", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no subject", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"unknown role", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: future},
			Role:             "root",
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong algorithm", sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: future},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS512, []byte(testSecret))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := testSecret
			if tt.name == "wrong secret" {
				secret = testSecret + "-other"
			}
			if _, err := ParseToken(tt.token, secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermLoggingRead, true},
		{RoleViewer, PermLoggingOperate, false},
		{RoleOperator, PermLoggingOperate, true},
		{RoleOperator, PermSamplerOperate, true},
		{RoleOperator, PermSystemAdmin, false},
		{RoleAdmin, PermSystemAdmin, true},
		{Role("root"), PermLoggingRead, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}

	perms := PermissionsForRole(RoleViewer)
	perms[0] = PermSystemAdmin
	if HasPermission(RoleViewer, PermSystemAdmin) {
		t.Error("PermissionsForRole returned the shared slice")
	}
	if PermissionsForRole(Role("root")) != nil {
		t.Error("PermissionsForRole(unknown) should be nil")
	}
}
