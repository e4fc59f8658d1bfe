package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"crypto/sha256"
)

// Iterations is the PBKDF2-HMAC-SHA256 round count used for every newly
// hashed key. Fixed at the spec's floor; never configurable, since a lower
// value would silently weaken every key created after the change.
const Iterations = 210_000

const (
	hashScheme = "pbkdf2_sha256"
	saltBytes  = 16
	keyBytes   = 32
	// brandPrefix marks plaintext keys as belonging to banshogate, matching
	// the style of API key prefixes that let a leaked-secret scanner
	// recognize the issuer at a glance.
	brandPrefix = "bgt_"
	// tokenBytes is the amount of random entropy in a generated plaintext
	// key, exactly the 32-byte floor the spec requires.
	tokenBytes = 32
)

// ErrUnknownHashScheme is returned by parseStored when the stored string
// does not match the pbkdf2_sha256 four-field format.
var ErrUnknownHashScheme = errors.New("auth: unknown hash scheme")

// Generate returns a new URL-safe plaintext API key carrying at least
// tokenBytes of random entropy, prefixed with the banshogate brand.
func Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate key: %w", err)
	}
	return brandPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash computes the stored PBKDF2-HMAC-SHA256 form of plaintext, in the
// format "pbkdf2_sha256$<iters>$<salt_b64>$<digest_b64>" using a fresh
// random salt and Iterations rounds.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(plaintext), salt, Iterations, keyBytes, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		Iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(digest),
	), nil
}

type storedHash struct {
	iterations int
	salt       []byte
	digest     []byte
}

// parseStored parses the four-field pbkdf2_sha256$... format. Any malformed
// input is reported as an error; Verify converts that into a false result
// rather than propagating it, per spec (verify never raises).
func parseStored(stored string) (storedHash, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return storedHash{}, ErrUnknownHashScheme
	}
	iters, err := strconv.Atoi(parts[1])
	if err != nil || iters <= 0 {
		return storedHash{}, fmt.Errorf("auth: invalid iteration count: %q", parts[1])
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return storedHash{}, fmt.Errorf("auth: invalid salt encoding: %w", err)
	}
	digest, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return storedHash{}, fmt.Errorf("auth: invalid digest encoding: %w", err)
	}
	return storedHash{iterations: iters, salt: salt, digest: digest}, nil
}

// Verify reports whether plaintext matches the stored hash, comparing in
// constant time. Any parse error on stored (unrecognized scheme, malformed
// fields) yields false rather than an error — a corrupted row must never
// crash the authenticator.
func Verify(plaintext, stored string) bool {
	parsed, err := parseStored(stored)
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(plaintext), parsed.salt, parsed.iterations, len(parsed.digest), sha256.New)
	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1
}
