package interview

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies an audio clip by content. Collisions only cost a
// skipped answer, so a fast non-cryptographic hash is enough.
type Fingerprint string

func FingerprintOf(audio []byte) Fingerprint {
	if len(audio) == 0 {
		return ""
	}
	return Fingerprint(fmt.Sprintf("%016x", xxhash.Sum64(audio)))
}

// observeAudio records fp as the last accepted clip and reports whether it is
// new. A repeated fingerprint leaves the session untouched.
func (s *Session) observeAudio(fp Fingerprint) bool {
	if fp == "" || fp == s.lastAudio {
		return false
	}
	s.lastAudio = fp
	return true
}
