package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGracePeriodDeadline(t *testing.T) {
	t.Run("yesterday", func(t *testing.T) {
		r := GracePeriodDeadline(time.Now().Add(-24 * time.Hour))
		assert.Equal(t, r, MinExpiry)
	})
	t.Run("tomorrow", func(t *testing.T) {
		r := GracePeriodDeadline(time.Now().Add(24 * time.Hour))
		assert.NotEqual(t, r, MinExpiry)
	})
}

func TestEndianFlow(t *testing.T) {
	e := time.Now().Add(time.Hour).Round(time.Second)

	p := EndianPut(e)
	_, a, err := EndianGet(p)

	assert.Nil(t, err)
	assert.Equal(t, e.Unix(), a.Unix())
}
