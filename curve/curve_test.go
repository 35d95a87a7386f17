// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package curve

import (
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saturating(t *testing.T, minX uint64, minY int64, maxX uint64, maxY int64) *Curve {
	c, err := SaturatingLinear(minX, big.NewInt(minY), maxX, big.NewInt(maxY))
	require.NoError(t, err)
	return c
}

func TestConstant(t *testing.T) {
	c := Constant(big.NewInt(42))
	assert.Equal(t, big.NewInt(42), c.ValueAt(0))
	assert.Equal(t, big.NewInt(42), c.ValueAt(1_000_000))

	_, ok := c.End()
	assert.False(t, ok)
	assert.NoError(t, c.ValidateNonIncreasing())
}

func TestSaturatingLinear(t *testing.T) {
	c := saturating(t, 0, 400, 100, 0)

	assert.Equal(t, big.NewInt(400), c.ValueAt(0))
	assert.Equal(t, big.NewInt(320), c.ValueAt(20))
	assert.Equal(t, big.NewInt(200), c.ValueAt(50))
	assert.Equal(t, big.NewInt(0), c.ValueAt(100))
	assert.Equal(t, big.NewInt(0), c.ValueAt(500), "saturates after max_x")

	end, ok := c.End()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), end)

	_, err := SaturatingLinear(100, big.NewInt(1), 100, big.NewInt(0))
	assert.Error(t, err, "empty time range is malformed")
}

func TestInterpolationFloors(t *testing.T) {
	c := saturating(t, 0, 100, 3, 0)
	// exact values would be 100, 66.67, 33.33, 0
	assert.Equal(t, big.NewInt(66), c.ValueAt(1))
	assert.Equal(t, big.NewInt(33), c.ValueAt(2))
}

func TestPiecewiseLinear(t *testing.T) {
	c, err := PiecewiseLinear([]Step{
		{X: 10, Y: big.NewInt(900)},
		{X: 20, Y: big.NewInt(300)},
		{X: 40, Y: big.NewInt(0)},
	})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(900), c.ValueAt(0), "constant before first step")
	assert.Equal(t, big.NewInt(600), c.ValueAt(15))
	assert.Equal(t, big.NewInt(300), c.ValueAt(20))
	assert.Equal(t, big.NewInt(150), c.ValueAt(30))
	assert.Equal(t, big.NewInt(0), c.ValueAt(41), "constant after last step")

	end, ok := c.End()
	assert.True(t, ok)
	assert.Equal(t, uint64(40), end)

	_, err = PiecewiseLinear([]Step{{X: 10, Y: big.NewInt(1)}, {X: 10, Y: big.NewInt(2)}})
	assert.Error(t, err, "duplicate times are forbidden")

	_, err = PiecewiseLinear(nil)
	assert.Error(t, err)
}

func TestValidateNonIncreasing(t *testing.T) {
	increasing, err := PiecewiseLinear([]Step{
		{X: 0, Y: big.NewInt(1)},
		{X: 10, Y: big.NewInt(2)},
	})
	require.NoError(t, err)
	assert.Error(t, increasing.ValidateNonIncreasing())

	assert.NoError(t, saturating(t, 0, 400, 100, 0).ValidateNonIncreasing())
}

func TestShift(t *testing.T) {
	c := saturating(t, 0, 400, 100, 0).Shift(1000)

	assert.Equal(t, big.NewInt(400), c.ValueAt(1000))
	assert.Equal(t, big.NewInt(200), c.ValueAt(1050))
	assert.Equal(t, big.NewInt(0), c.ValueAt(1100))

	end, ok := c.End()
	assert.True(t, ok)
	assert.Equal(t, uint64(1100), end)
}

func TestScale(t *testing.T) {
	c := saturating(t, 0, 400, 100, 0).Scale(big.NewInt(3))
	assert.Equal(t, big.NewInt(1200), c.ValueAt(0))
	assert.Equal(t, big.NewInt(600), c.ValueAt(50))
}

func TestCombine(t *testing.T) {
	first := saturating(t, 0, 400, 100, 0)
	second := saturating(t, 0, 400, 100, 0).Shift(50)

	combined := first.Combine(second)
	assert.Equal(t, big.NewInt(800), combined.ValueAt(0))
	assert.Equal(t, big.NewInt(600), combined.ValueAt(50), "first half done, second untouched")
	assert.Equal(t, big.NewInt(200), combined.ValueAt(100), "first done, second half done")
	assert.Equal(t, big.NewInt(0), combined.ValueAt(150))
	assert.NoError(t, combined.ValidateNonIncreasing())

	// releasing over any interval never goes negative
	prev := combined.ValueAt(0)
	for x := uint64(1); x <= 160; x++ {
		cur := combined.ValueAt(x)
		assert.True(t, cur.Cmp(prev) <= 0, "combined curve must be non-increasing")
		prev = cur
	}
}

func TestCombineConstants(t *testing.T) {
	combined := Constant(big.NewInt(10)).Combine(Constant(big.NewInt(5)))
	assert.Equal(t, KindConstant, combined.Kind)
	assert.Equal(t, big.NewInt(15), combined.ValueAt(12345))
}

func TestFuzzedMonotonicity(t *testing.T) {
	f := fuzz.NewWithSeed(1).NilChance(0)

	for i := 0; i < 50; i++ {
		var gaps [6]uint16
		var drops [6]uint16
		f.Fuzz(&gaps)
		f.Fuzz(&drops)

		total := int64(0)
		for _, d := range drops {
			total += int64(d)
		}
		steps := make([]Step, 0, len(gaps)+1)
		x := uint64(0)
		y := total
		steps = append(steps, Step{X: x, Y: big.NewInt(y)})
		for j := range gaps {
			x += uint64(gaps[j]) + 1
			y -= int64(drops[j])
			steps = append(steps, Step{X: x, Y: big.NewInt(y)})
		}

		c, err := PiecewiseLinear(steps)
		require.NoError(t, err)
		require.NoError(t, c.ValidateNonIncreasing())

		prev := c.ValueAt(0)
		for x := uint64(0); x < steps[len(steps)-1].X+10; x += 7 {
			cur := c.ValueAt(x)
			require.True(t, cur.Cmp(prev) <= 0, "value may never grow")
			prev = cur
		}
		// everything is released by the end
		end, ok := c.End()
		require.True(t, ok)
		require.Zero(t, c.ValueAt(end).Sign(), "fully unlocked at end")
	}
}
