package tlscrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"sync"
)

// Random implements tlsclient.RandomSource. AddEntropy folds inbound
// handshake bytes into a running digest that is mixed into every output
// block, echoing the Botan source's pattern of feeding a running RNG
// with observed ciphertext; the actual unpredictability still comes from
// crypto/rand, never from the folded-in transcript bytes alone.
type Random struct {
	mu    sync.Mutex
	state [32]byte
}

// NewRandom seeds state from crypto/rand so AddEntropy never needs to be
// called for the source to be safe to use.
func NewRandom() *Random {
	r := &Random{}
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	r.state = sha256.Sum256(seed[:])
	return r
}

func (r *Random) AddEntropy(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := sha256.New()
	h.Write(r.state[:])
	h.Write(data)
	copy(r.state[:], h.Sum(nil))
}

func (r *Random) RandomBytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, 0, n)
	for len(out) < n {
		fresh := make([]byte, 32)
		_, _ = rand.Read(fresh)

		h := sha256.New()
		h.Write(r.state[:])
		h.Write(fresh)
		block := h.Sum(nil)
		copy(r.state[:], block)

		out = append(out, block...)
	}
	return out[:n]
}
