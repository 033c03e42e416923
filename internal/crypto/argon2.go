package crypto

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// Defaults for account passwords. MinArgon2MemoryKiB is the floor accepted
// from config; tests run at the floor.
const (
	DefaultArgon2MemoryKiB  uint32 = 64 * 1024
	DefaultArgon2Iterations uint32 = 3
	DefaultArgon2SaltLen           = 16
	DefaultArgon2KeyLen     uint32 = 32
	MinArgon2MemoryKiB      uint32 = 8 * 1024

	maxDefaultParallelism = 4
)

var ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")

// Argon2Params is the argon2id cost. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

func DefaultArgon2Params() Argon2Params {
	parallelism := min(max(runtime.NumCPU(), 1), maxDefaultParallelism)
	return Argon2Params{
		Memory:      DefaultArgon2MemoryKiB,
		Iterations:  DefaultArgon2Iterations,
		Parallelism: uint8(parallelism),
		SaltLen:     DefaultArgon2SaltLen,
		KeyLen:      DefaultArgon2KeyLen,
	}
}

func (p Argon2Params) Validate() error {
	var problem string
	switch {
	case p.Memory < MinArgon2MemoryKiB:
		problem = fmt.Sprintf("memory must be >= %d KiB", MinArgon2MemoryKiB)
	case p.Iterations == 0:
		problem = "iterations must be > 0"
	case p.Parallelism == 0:
		problem = "parallelism must be > 0"
	case p.SaltLen < 16:
		problem = "salt length must be >= 16"
	case p.KeyLen < 16:
		problem = "key length must be >= 16"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgon2Params, problem)
}

// sameCost reports whether a stored hash was made with the cost of p. Salt
// length is not part of the cost.
func (p Argon2Params) sameCost(stored Argon2Params) bool {
	return p.Memory == stored.Memory &&
		p.Iterations == stored.Iterations &&
		p.Parallelism == stored.Parallelism &&
		p.KeyLen == stored.KeyLen
}

// phcSegment renders the "m=..,t=..,p=.." part of an encoded hash.
func (p Argon2Params) phcSegment() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Iterations, p.Parallelism)
}

func parsePHCSegment(segment string) (Argon2Params, error) {
	var p Argon2Params
	if _, err := fmt.Sscanf(segment, "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Argon2Params{}, err
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return Argon2Params{}, fmt.Errorf("zero cost in %q", segment)
	}
	return p, nil
}

// deriveKey runs argon2id with params. The caller owns and wipes the result.
func deriveKey(password, salt []byte, params Argon2Params) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
}
