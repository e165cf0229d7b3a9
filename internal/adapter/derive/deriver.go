// Package derive computes deterministic record addresses from a namespace,
// a key and a bump byte.
package derive

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/neomorfeo/certiq/internal/domain"
)

// marker separates derived addresses from personal ones hashed with the
// same function.
const marker = "certiq/derived"

// Deriver implements domain.Deriver with BLAKE2b-256.
type Deriver struct {
	prefix string
}

// New returns a deriver whose addresses start with prefix. An empty prefix
// yields bare hex digests.
func New(prefix string) *Deriver {
	return &Deriver{prefix: prefix}
}

// Derive searches bumps downward from 255 and returns the first address that
// lands outside the personal address space.
func (d *Deriver) Derive(namespace string, key []byte) (domain.Address, uint8) {
	for bump := 255; bump >= 0; bump-- {
		sum := digest(namespace, key, uint8(bump))
		if offCurve(sum) {
			return d.encode(sum), uint8(bump)
		}
	}
	// Every bump collided. With one in two digests accepted this needs 256
	// consecutive misses; fall back to bump 0.
	return d.encode(digest(namespace, key, 0)), 0
}

// Verify reports whether seeds derive addr.
func (d *Deriver) Verify(addr domain.Address, seeds domain.SignerSeeds) bool {
	sum := digest(seeds.Namespace, seeds.Key, seeds.Bump)
	return offCurve(sum) && d.encode(sum) == addr
}

func (d *Deriver) encode(sum [blake2b.Size256]byte) domain.Address {
	return domain.Address(d.prefix + hex.EncodeToString(sum[:]))
}

func digest(namespace string, key []byte, bump uint8) [blake2b.Size256]byte {
	buf := make([]byte, 0, len(namespace)+len(key)+len(marker)+2)
	buf = append(buf, namespace...)
	buf = append(buf, 0)
	buf = append(buf, key...)
	buf = append(buf, bump)
	buf = append(buf, marker...)
	return blake2b.Sum256(buf)
}

// offCurve stands in for the curve-point test: derived addresses have the
// top bit of the last byte cleared.
func offCurve(sum [blake2b.Size256]byte) bool {
	return sum[len(sum)-1]&0x80 == 0
}
