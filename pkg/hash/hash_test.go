// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", String())
	assert.Equal(t, String([]byte("ab")), String([]byte("a"), []byte("b")))
	assert.Equal(t, "a9993e36", Short("abc"))
}

func TestBounded(t *testing.T) {
	assert.Equal(t, "t_-ffoo", Bounded("t_-ffoo", 200))
	long := strings.Repeat("t_-finline_", 40)
	res := Bounded(long, 200)
	assert.Len(t, res, 200)
	assert.True(t, strings.HasPrefix(res, long[:191]))
	assert.True(t, strings.HasSuffix(res, "-"+Short(long)))
	assert.NotEqual(t, res, Bounded(long+"x", 200))
	assert.Equal(t, Short(long), Bounded(long, 5))
}
