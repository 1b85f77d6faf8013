package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "unit-test-secret"
	token, err := GenerateToken(secret, Claims{UserID: "u-1", RoleID: "r-1", RoleName: RoleManager}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "u-1" || claims.RoleID != "r-1" || claims.RoleName != RoleManager {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected parse failure for expired token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := CheckPassword(hash, "Secret123!"); err != nil {
		t.Fatalf("expected password to verify: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch to fail")
	}
}

func TestRolePermissionsCoverDefaults(t *testing.T) {
	seen := map[string]bool{}
	for _, perms := range RolePermissions {
		for _, perm := range perms {
			seen[perm] = true
		}
	}
	for perm := range seen {
		found := false
		for _, known := range DefaultPermissions {
			if known == perm {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("role permission %s is not in the default permission set", perm)
		}
	}
}
