package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareBoundaries(t *testing.T) {
	cases := []struct {
		price     float64
		expensive bool
	}{
		{121000, true},
		{119999, false},
		{120000, false},
		{0, false},
	}
	for _, tc := range cases {
		c := Compare(100000, tc.price)
		assert.Equal(t, tc.expensive, c.IsExpensive, "price %v", tc.price)
		if tc.expensive {
			assert.Equal(t, LabelAbove, c.Label)
		} else {
			assert.Equal(t, LabelApproved, c.Label)
		}
	}
}

func TestCompareZeroEstimate(t *testing.T) {
	assert.False(t, Compare(0, 0).IsExpensive)
	assert.True(t, Compare(0, 1).IsExpensive)
}
