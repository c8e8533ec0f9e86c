package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankForThresholds(t *testing.T) {
	cases := []struct {
		points int
		want   Rank
	}{
		{0, RankBronze},
		{99, RankBronze},
		{100, RankSilver},
		{249, RankSilver},
		{250, RankGold},
		{499, RankGold},
		{500, RankPlatinum},
		{999, RankPlatinum},
		{1000, RankDiamond},
		{5000, RankDiamond},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, RankFor(tc.points), "points=%d", tc.points)
	}
}

func TestRankForNegativePoints(t *testing.T) {
	assert.Equal(t, RankBronze, RankFor(-50))
}
