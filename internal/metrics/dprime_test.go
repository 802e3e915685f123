package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRate(t *testing.T) {
	assert.Equal(t, 0.25, Rate(1, 4))
	assert.Equal(t, 0.0, Rate(0, 3))
	assert.True(t, math.IsNaN(Rate(0, 0)))
}

func TestAdjustResponseRate(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		n    int
		want float64
	}{
		{"zero", 0, 50, 0.01},
		{"one", 1, 10, 0.95},
		{"intermediate untouched", 0.3, 10, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AdjustResponseRate(tt.r, tt.n), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(AdjustResponseRate(math.NaN(), 0)))
}

func TestCalcDprime(t *testing.T) {
	t.Run("both rates zero", func(t *testing.T) {
		d := CalcDprime(0, 0, 50, 50)
		assert.False(t, math.IsInf(d, 0))
		assert.InDelta(t, 0.0, d, 1e-12)
	})

	t.Run("perfect performance stays finite", func(t *testing.T) {
		d := CalcDprime(1, 0, 10, 10)
		assert.False(t, math.IsInf(d, 0))
		assert.Greater(t, d, 0.0)
		assert.InDelta(t, 3.289707253902944, d, 1e-4)
	})

	t.Run("intermediate rates", func(t *testing.T) {
		assert.InDelta(t, 1.272348532868372, CalcDprime(0.8, 1.0/3, 15, 3), 1e-4)
	})

	t.Run("NaN propagates", func(t *testing.T) {
		assert.True(t, math.IsNaN(CalcDprime(math.NaN(), 0.2, 0, 10)))
		assert.True(t, math.IsNaN(CalcDprime(0.8, Rate(0, 0), 10, 0)))
	})

	t.Run("zero rate over zero trials does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			assert.True(t, math.IsNaN(CalcDprime(0, 0.5, 0, 10)))
		})
	})
}
