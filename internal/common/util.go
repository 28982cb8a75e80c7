package common

import (
	"crypto/rand"
	"encoding/binary"
)

// RandUint64 returns a uniformly distributed random 64-bit value read from
// crypto/rand. It panics only if the system randomness source is broken.
func RandUint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(b[:])
}

// GenerateRandByteArray returns size random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. Used to drop plaintext passwords
// from memory once they have been hashed or verified. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
