// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"crypto/sha1"
	"encoding/hex"
)

type Sig [sha1.Size]byte

func Hash(pieces ...[]byte) Sig {
	h := sha1.New()
	for _, data := range pieces {
		h.Write(data)
	}
	var sig Sig
	copy(sig[:], h.Sum(nil))
	return sig
}

func String(pieces ...[]byte) string {
	sig := Hash(pieces...)
	return sig.String()
}

func (sig *Sig) String() string {
	return hex.EncodeToString((*sig)[:])
}

// Short returns the first 8 hex digits of the hash of s.
func Short(s string) string {
	return String([]byte(s))[:8]
}

// Bounded returns s if it fits into limit bytes, otherwise a prefix of s
// followed by a short hash of the whole s, limit bytes in total.
// Limits too small to hold the hash yield just the short hash.
func Bounded(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	suffix := "-" + Short(s)
	if limit <= len(suffix) {
		return Short(s)
	}
	return s[:limit-len(suffix)] + suffix
}
