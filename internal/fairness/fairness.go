// Package fairness derives game randomness from a hidden server seed, a
// player-chosen client seed and a per-wallet nonce, so every round can be
// replayed once the server seed is revealed.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const bytesPerFloat = 4

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func NewServerSeed() (string, error) {
	return randomHex(32)
}

func NewClientSeed() (string, error) {
	return randomHex(16)
}

// HashSeed is what players see before the server seed is revealed.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Source is a deterministic byte stream:
// HMAC-SHA256(serverSeed, "clientSeed:nonce:cursor") for cursor = 0, 1, 2...
// Not safe for concurrent use; create one per round.
type Source struct {
	serverSeed string
	clientSeed string
	nonce      int64
	cursor     int
	buf        []byte
}

func NewSource(serverSeed, clientSeed string, nonce int64) *Source {
	return &Source{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce}
}

func (s *Source) nextByte() byte {
	if len(s.buf) == 0 {
		h := hmac.New(sha256.New, []byte(s.serverSeed))
		fmt.Fprintf(h, "%s:%d:%d", s.clientSeed, s.nonce, s.cursor)
		s.buf = h.Sum(nil)
		s.cursor++
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b
}

// Float64 builds a value in [0,1) from four bytes, most significant first.
func (s *Source) Float64() float64 {
	var f, scale float64 = 0, 1
	for i := 0; i < bytesPerFloat; i++ {
		scale /= 256
		f += float64(s.nextByte()) * scale
	}
	return f
}

func (s *Source) IntN(n int) int {
	if n <= 0 {
		panic("fairness: invalid argument to IntN")
	}
	return int(s.Float64() * float64(n))
}
