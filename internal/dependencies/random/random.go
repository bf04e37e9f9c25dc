package random

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
)

// Random is the source for challenge nonces and new park seeds
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// Bytes returns n random bytes
	Bytes(n int) []byte

	// Seed returns a fresh non-zero simulation seed
	Seed() uint32
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func (r *CryptoRandom) Bytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	// crypto/rand.Read does not fail on supported platforms
	_, _ = rand.Read(b)
	return b
}

func (r *CryptoRandom) Seed() uint32 {
	for {
		if s := binary.BigEndian.Uint32(r.Bytes(4)); s != 0 {
			return s
		}
	}
}
