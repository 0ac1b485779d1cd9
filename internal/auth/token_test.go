package auth

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("s3cret-admin-token")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyToken("s3cret-admin-token", hash) {
		t.Fatalf("expected token verification to succeed")
	}
	if VerifyToken("wrong-token", hash) {
		t.Fatalf("did not expect wrong token to verify")
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	if got := BearerToken("Bearer abc123"); got != "abc123" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := BearerToken("bearer  abc123 "); got != "abc123" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := BearerToken("Basic abc123"); got != "" {
		t.Fatalf("expected empty token for non-bearer scheme, got %q", got)
	}
	if got := BearerToken(""); got != "" {
		t.Fatalf("expected empty token for empty header, got %q", got)
	}
}
