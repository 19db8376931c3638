package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 40, Clamp(12, 40, 300))
	assert.Equal(t, 300, Clamp(999, 40, 300))
	assert.Equal(t, 120, Clamp(120, 40, 300))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
	assert.Equal(t, 1.0, Clamp(1.2, 0.0, 1.0))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(50.0, 50.0, 2000.0))
	assert.True(t, Within(2000.0, 50.0, 2000.0))
	assert.False(t, Within(49.9, 50.0, 2000.0))
	assert.False(t, Within(301, 40, 300))
}
