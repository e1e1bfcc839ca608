// Package rand produces request and token identifiers. None of it is security sensitive.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" // reduced base64

var defaultSource = newSource()

// source is a PCG stream seeded once from crypto/rand.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand

	ulidMu  sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newSource() *source {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic("unreachable")
	}
	s := &source{
		//nolint:gosec // no security required
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
	s.entropy = ulid.Monotonic(s, 0)
	return s
}

// Read fills p entirely and never fails.
func (s *source) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var chunk [8]byte
	for i := 0; i < len(p); i += len(chunk) {
		binary.LittleEndian.PutUint64(chunk[:], s.rng.Uint64())
		copy(p[i:], chunk[:])
	}
	return len(p), nil
}

// NewRequestID returns a random alphanumeric id sent as X-Request-ID.
// The distribution is not uniform.
func NewRequestID(length int) string {
	buf := make([]byte, length)
	_, _ = defaultSource.Read(buf)
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf)
}

// NewULID returns a monotonic ULID for t. Used for token ids and CLI correlation ids.
func NewULID(t time.Time) ulid.ULID {
	defaultSource.ulidMu.Lock()
	defer defaultSource.ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), defaultSource.entropy)
}
