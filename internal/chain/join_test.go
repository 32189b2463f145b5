package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStakeBaseUnits(t *testing.T) {
	assert.Equal(t, uint64(1_000_000), StakeBaseUnits(0))
	assert.Equal(t, uint64(1_000_000_000_000), StakeBaseUnits(6))
	assert.Equal(t, uint64(1_000_000_000_000_000), StakeBaseUnits(9))
}
