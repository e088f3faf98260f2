package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, float32(2.2), s.Gamma)
	assert.Equal(t, float32(1), s.Exposure)
	assert.Positive(t, s.BloomAmount)
	assert.Equal(t, 1024, s.ShadowMapSize)
}
