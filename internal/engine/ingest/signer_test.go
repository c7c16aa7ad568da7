package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"call_id":"c1"}`)
	secret := "whsec_test"

	got := Sign(secret, payload)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	want := hex.EncodeToString(h.Sum(nil))

	if got != want {
		t.Errorf("Sign mismatch: got %s, want %s", got, want)
	}

	if Sign("other-secret", payload) == got {
		t.Error("Different secrets must produce different signatures")
	}
}

func TestSecretsEqual(t *testing.T) {
	if !SecretsEqual("whsec_a", "whsec_a") {
		t.Error("Equal secrets reported unequal")
	}
	if SecretsEqual("whsec_a", "whsec_b") {
		t.Error("Unequal secrets reported equal")
	}
	if SecretsEqual("", "whsec_a") {
		t.Error("Empty secret must not match")
	}
}
