// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42, 0)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	c.Set("short", "v", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory()
	c.Set("forever", "v", 0)

	time.Sleep(2 * time.Millisecond)
	_, ok := c.Get("forever")
	assert.True(t, ok)
}
