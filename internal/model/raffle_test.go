package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasParticipant(t *testing.T) {
	status := &RaffleStatus{
		Round:        4,
		Participants: []string{"a", "b"},
	}

	assert.True(t, status.HasParticipant("a"))
	assert.False(t, status.HasParticipant("c"))
	assert.False(t, status.HasParticipant(""))
}

func TestPrizeRank(t *testing.T) {
	winners := []string{"first", "second", "third"}

	assert.Equal(t, 0, PrizeRank(winners, "first"))
	assert.Equal(t, 1, PrizeRank(winners, "second"))
	assert.Equal(t, 2, PrizeRank(winners, "third"))
	assert.Equal(t, -1, PrizeRank(winners, "nobody"))
	assert.Equal(t, -1, PrizeRank(winners, ""))
	assert.Equal(t, -1, PrizeRank(nil, "first"))
}

func TestPrizeAmount(t *testing.T) {
	assert.Equal(t, int64(2_000_000), PrizeAmount(0))
	assert.Equal(t, int64(300_000), PrizeAmount(1))
	assert.Equal(t, int64(200_000), PrizeAmount(2))
	assert.Equal(t, int64(0), PrizeAmount(3))
	assert.Equal(t, int64(0), PrizeAmount(-1))
}
