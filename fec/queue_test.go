// SPDX-License-Identifier: BSD-2-Clause

package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketQueueFIFO(t *testing.T) {
	q := NewPacketQueue()
	assert.Equal(t, 0, q.Size())
	assert.Nil(t, q.Head())
	assert.Nil(t, q.Read())

	a := NewRepairPacket(make([]byte, 4), 0, 0, 0)
	b := NewRepairPacket(make([]byte, 4), 0, 1, 0)
	q.Write(a)
	q.Write(b)
	require.Equal(t, 2, q.Size())

	assert.Equal(t, a, q.Head())
	assert.Equal(t, 2, q.Size(), "head must not dequeue")

	assert.Equal(t, a, q.Read())
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, b, q.Read())
	assert.Equal(t, 0, q.Size())
	assert.Nil(t, q.Read())
}
