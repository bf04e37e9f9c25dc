// Package keys manages per-name signing keys on clients and verifies
// challenge signatures on servers.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/mcoot/parksync/internal/dependencies/random"
)

// Challenge length bounds
const (
	MinChallengeLength = 10
	MaxChallengeLength = 137
)

// Errors
var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrInvalidKey         = errors.New("invalid key")
	ErrVerificationFailed = errors.New("signature verification failed")
)

// Store keeps one keypair per player name under a directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the key directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) paths(name string) (priv, pub string) {
	base := filepath.Join(s.dir, safeFileName(name))
	return base + ".privkey", base + ".pubkey"
}

// Exists reports whether a private key is stored for name
func (s *Store) Exists(name string) bool {
	priv, _ := s.paths(name)
	_, err := os.Stat(priv)
	return err == nil
}

// Generate creates and saves a new keypair for name, replacing any existing
// one, and returns the public key in PEM form
func (s *Store) Generate(name string) (string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	defer clear(priv)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("encode private key: %w", err)
	}
	defer clear(privDER)
	pubPEM, err := encodePublicKey(pub)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	privPath, pubPath := s.paths(name)
	if err := os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600); err != nil {
		return "", fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(pubPEM), 0o644); err != nil {
		return "", fmt.Errorf("write public key: %w", err)
	}
	return pubPEM, nil
}

// EnsureKey returns the public key for name, generating a keypair on first use
func (s *Store) EnsureKey(name string) (string, error) {
	if s.Exists(name) {
		return s.PublicKey(name)
	}
	return s.Generate(name)
}

// PublicKey returns the stored public key for name in PEM form
func (s *Store) PublicKey(name string) (string, error) {
	_, pubPath := s.paths(name)
	data, err := os.ReadFile(pubPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return "", fmt.Errorf("read public key: %w", err)
	}
	if _, err := ParsePublicKey(string(data)); err != nil {
		return "", err
	}
	return string(data), nil
}

// Sign signs a challenge with name's private key. The key is read from disk
// for the call and wiped from memory before returning.
func (s *Store) Sign(name string, challenge []byte) ([]byte, error) {
	privPath, _ := s.paths(name)
	data, err := os.ReadFile(privPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return nil, fmt.Errorf("read private key: %w", err)
	}
	defer clear(data)

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: no private key block", ErrInvalidKey)
	}
	defer clear(block.Bytes)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ed25519 key", ErrInvalidKey)
	}
	defer clear(priv)

	return ed25519.Sign(priv, challenge), nil
}

// ParsePublicKey decodes a PEM public key
func ParsePublicKey(pubPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: no public key block", ErrInvalidKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ed25519 key", ErrInvalidKey)
	}
	return pub, nil
}

// Verify checks sig over challenge against the PEM public key and returns
// the key's hash
func Verify(pubPEM string, challenge, sig []byte) (string, error) {
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		return "", err
	}
	if !ed25519.Verify(pub, challenge, sig) {
		return "", ErrVerificationFailed
	}
	return Hash(pub), nil
}

// Hash returns the identity hash of a public key
func Hash(pub ed25519.PublicKey) string {
	sum := blake3.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

// Fingerprint parses a PEM public key and returns its hash
func Fingerprint(pubPEM string) (string, error) {
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		return "", err
	}
	return Hash(pub), nil
}

// NewChallenge returns a nonce of random length between MinChallengeLength
// and MaxChallengeLength
func NewChallenge(r random.Random) []byte {
	n := MinChallengeLength + r.Intn(MaxChallengeLength-MinChallengeLength+1)
	return r.Bytes(n)
}

func encodePublicKey(pub ed25519.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
