// SPDX-License-Identifier: BSD-2-Clause

package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqLess(t *testing.T) {
	assert.True(t, seqLess(100, 101))
	assert.False(t, seqLess(101, 100))
	assert.False(t, seqLess(100, 100))

	// wraparound: 65535 < 0
	assert.True(t, seqLess(65535, 0))
	assert.False(t, seqLess(0, 65535))
}

func TestSeqLessEqual(t *testing.T) {
	assert.True(t, seqLessEqual(100, 100))
	assert.True(t, seqLessEqual(100, 101))
	assert.False(t, seqLessEqual(101, 100))
}

func TestSeqDiff(t *testing.T) {
	assert.Equal(t, int32(1), seqDiff(101, 100))
	assert.Equal(t, int32(-1), seqDiff(100, 101))
	assert.Equal(t, int32(1), seqDiff(0, 65535))
}
