package auth

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	plaintext, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	hash, err := Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !Verify(plaintext, hash) {
		t.Fatalf("Verify(plaintext, hash) = false, want true")
	}
	if Verify(plaintext+"x", hash) {
		t.Fatalf("Verify(wrong plaintext, hash) = true, want false")
	}
}

func TestVerifyMalformedStoredNeverPanics(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"pbkdf2_sha256$notanumber$YQ==$YQ==",
		"pbkdf2_sha256$210000$not-base64!!$YQ==",
		"md5$1$YQ==$YQ==",
	}
	for _, stored := range cases {
		if Verify("anything", stored) {
			t.Errorf("Verify(_, %q) = true, want false", stored)
		}
	}
}

func TestGenerateIsUnique(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a == b {
		t.Fatalf("Generate produced identical keys: %q", a)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	plaintext := "bgt_same-input"
	h1, err := Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("Hash(same plaintext) produced identical digests, want distinct salts")
	}
	if !Verify(plaintext, h1) || !Verify(plaintext, h2) {
		t.Fatalf("both hashes of the same plaintext must verify")
	}
}
