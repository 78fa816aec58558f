package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardAuthorize(t *testing.T) {
	g := NewGuard([]int64{771853550, 719405515})

	assert.True(t, g.Authorize(771853550))
	assert.True(t, g.Authorize(719405515))
	assert.False(t, g.Authorize(12345))
	assert.False(t, g.Authorize(0))
}

func TestGuardEmptyList(t *testing.T) {
	g := NewGuard(nil)
	assert.False(t, g.Authorize(771853550))
}
