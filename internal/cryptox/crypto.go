// Package cryptox implements the salted, memory-hard password hashing used
// by the credential store. Hashes are stored in the PHC string format
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
//
// with salt and hash in unpadded standard base64, so records produced by
// other argon2 tooling can be verified as well.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/homevault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	variantArgon2id = "argon2id"
	variantArgon2i  = "argon2i"

	// maxMemoryKiB bounds the memory a stored record may ask for, so one bad
	// line in the credentials file cannot make a login allocate gigabytes.
	maxMemoryKiB = 1 << 21
)

// Params are the argon2 cost parameters.
type Params struct {
	Memory     uint32 // KiB
	Iterations uint32
	Threads    uint8
	SaltLen    int
	KeyLen     uint32
}

// DefaultParams matches the cost the project has always used for
// key derivation: 64 MiB, one pass, four lanes.
var DefaultParams = Params{
	Memory:     64 * 1024,
	Iterations: 1,
	Threads:    4,
	SaltLen:    16,
	KeyLen:     32,
}

// HashPassword hashes password with DefaultParams and a fresh random salt.
func HashPassword(password []byte) (string, error) {
	return HashPasswordWithParams(password, DefaultParams)
}

// HashPasswordWithParams hashes password as argon2id with the given params.
func HashPasswordWithParams(password []byte, p Params) (string, error) {
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 || p.KeyLen == 0 || p.SaltLen <= 0 {
		return "", fmt.Errorf("invalid argon2 params: %+v", p)
	}

	salt := common.GenerateRandByteArray(p.SaltLen)
	key := argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		variantArgon2id, argon2.Version, p.Memory, p.Iterations, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// A hash that cannot be parsed yields common.ErrMalformedHash.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	d, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	var candidate []byte
	switch d.variant {
	case variantArgon2id:
		candidate = argon2.IDKey(password, d.salt, d.iterations, d.memory, d.threads, uint32(len(d.key)))
	case variantArgon2i:
		candidate = argon2.Key(password, d.salt, d.iterations, d.memory, d.threads, uint32(len(d.key)))
	}

	return subtle.ConstantTimeCompare(d.key, candidate) == 1, nil
}

type decodedHash struct {
	variant    string
	memory     uint32
	iterations uint32
	threads    uint8
	salt       []byte
	key        []byte
}

func decodeHash(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 fields", common.ErrMalformedHash)
	}

	d := &decodedHash{variant: parts[1]}
	if d.variant != variantArgon2id && d.variant != variantArgon2i {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", common.ErrMalformedHash, d.variant)
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", common.ErrMalformedHash, parts[2])
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: bad parameter %q", common.ErrMalformedHash, kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad parameter %q", common.ErrMalformedHash, kv)
		}
		switch name {
		case "m":
			d.memory = uint32(n)
		case "t":
			d.iterations = uint32(n)
		case "p":
			if n > 255 {
				return nil, fmt.Errorf("%w: parallelism %d out of range", common.ErrMalformedHash, n)
			}
			d.threads = uint8(n)
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", common.ErrMalformedHash, name)
		}
	}
	if d.memory == 0 || d.iterations == 0 || d.threads == 0 {
		return nil, fmt.Errorf("%w: missing cost parameter", common.ErrMalformedHash)
	}
	if d.memory > maxMemoryKiB {
		return nil, fmt.Errorf("%w: memory cost %d too large", common.ErrMalformedHash, d.memory)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) == 0 {
		return nil, fmt.Errorf("%w: bad salt", common.ErrMalformedHash)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return nil, fmt.Errorf("%w: bad hash", common.ErrMalformedHash)
	}

	return d, nil
}
