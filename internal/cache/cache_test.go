package cache

import "testing"

func TestKeys(t *testing.T) {
	if got := RevokedTokenKey("abc"); got != "auth:revoked:abc" {
		t.Fatalf("RevokedTokenKey = %q", got)
	}
	if got := PasswordResetKey("tok"); got != "auth:reset:tok" {
		t.Fatalf("PasswordResetKey = %q", got)
	}
	if KeyTopicsAll == RevokedTokenKey("") {
		t.Fatal("key namespaces overlap")
	}
}
