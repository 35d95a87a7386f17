// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package curve models release schedules: how much of a funded amount
// remains locked at any instant. A curve is one of a closed set of shapes
// (constant, saturating linear, piecewise linear) kept as a tagged record so
// it can be stored and combined without a type hierarchy.
package curve

import (
	"math/big"

	"github.com/pkg/errors"
)

// Kind tags the shape of a curve.
type Kind uint8

const (
	// KindConstant holds the same value forever.
	KindConstant Kind = iota
	// KindSaturatingLinear interpolates between two points, clamped outside them.
	KindSaturatingLinear
	// KindPiecewiseLinear interpolates over an ordered series of breakpoints.
	KindPiecewiseLinear
)

// Step is one breakpoint of a curve.
type Step struct {
	X uint64
	Y *big.Int
}

// Curve is a value-over-time schedule.
// The zero steps slice evaluates to zero everywhere.
type Curve struct {
	Kind  Kind
	Steps []Step
}

// Constant creates a curve that always evaluates to y.
func Constant(y *big.Int) *Curve {
	return &Curve{Kind: KindConstant, Steps: []Step{{X: 0, Y: new(big.Int).Set(y)}}}
}

// SaturatingLinear creates a curve interpolating from (minX, minY) to
// (maxX, maxY), holding minY before minX and maxY after maxX.
func SaturatingLinear(minX uint64, minY *big.Int, maxX uint64, maxY *big.Int) (*Curve, error) {
	if minX >= maxX {
		return nil, errors.New("curve: min_x must be less than max_x")
	}
	return &Curve{
		Kind: KindSaturatingLinear,
		Steps: []Step{
			{X: minX, Y: new(big.Int).Set(minY)},
			{X: maxX, Y: new(big.Int).Set(maxY)},
		},
	}, nil
}

// PiecewiseLinear creates a curve from ordered breakpoints.
// Steps must be sorted by X with no duplicates.
func PiecewiseLinear(steps []Step) (*Curve, error) {
	if len(steps) == 0 {
		return nil, errors.New("curve: no steps")
	}
	copied := make([]Step, len(steps))
	for i, s := range steps {
		if i > 0 && s.X <= steps[i-1].X {
			return nil, errors.New("curve: steps must be strictly increasing in time")
		}
		if s.Y == nil || s.Y.Sign() < 0 {
			return nil, errors.New("curve: negative or missing value")
		}
		copied[i] = Step{X: s.X, Y: new(big.Int).Set(s.Y)}
	}
	return &Curve{Kind: KindPiecewiseLinear, Steps: copied}, nil
}

// ValueAt evaluates the curve at x.
// Between breakpoints the value is linearly interpolated with floor division,
// before the first and after the last breakpoint it is constant.
func (c *Curve) ValueAt(x uint64) *big.Int {
	n := len(c.Steps)
	if n == 0 {
		return new(big.Int)
	}
	if x <= c.Steps[0].X {
		return new(big.Int).Set(c.Steps[0].Y)
	}
	if x >= c.Steps[n-1].X {
		return new(big.Int).Set(c.Steps[n-1].Y)
	}
	i := 1
	for c.Steps[i].X < x {
		i++
	}
	return interpolate(c.Steps[i-1], c.Steps[i], x)
}

// interpolate computes the exact linear blend floored, so no value is ever
// created between breakpoints.
func interpolate(a, b Step, x uint64) *big.Int {
	dx := new(big.Int).SetUint64(b.X - a.X)
	left := new(big.Int).Mul(a.Y, new(big.Int).SetUint64(b.X-x))
	right := new(big.Int).Mul(b.Y, new(big.Int).SetUint64(x-a.X))
	return left.Add(left, right).Quo(left, dx)
}

// Shift translates all time coordinates right by delta.
// Used to re-anchor a relative schedule to "now" when funded.
func (c *Curve) Shift(delta uint64) *Curve {
	steps := make([]Step, len(c.Steps))
	for i, s := range c.Steps {
		steps[i] = Step{X: s.X + delta, Y: new(big.Int).Set(s.Y)}
	}
	return &Curve{Kind: c.Kind, Steps: steps}
}

// Scale multiplies all value coordinates by factor.
// Used when one funding pool is split pro-rata across recipients.
func (c *Curve) Scale(factor *big.Int) *Curve {
	steps := make([]Step, len(c.Steps))
	for i, s := range c.Steps {
		steps[i] = Step{X: s.X, Y: new(big.Int).Mul(s.Y, factor)}
	}
	return &Curve{Kind: c.Kind, Steps: steps}
}

// End returns the last meaningful time coordinate of the curve.
// Constant curves have no end.
func (c *Curve) End() (uint64, bool) {
	if c.Kind == KindConstant || len(c.Steps) == 0 {
		return 0, false
	}
	return c.Steps[len(c.Steps)-1].X, true
}

// ValidateNonIncreasing rejects curves whose value grows over time.
// Release schedules must never create value implicitly.
func (c *Curve) ValidateNonIncreasing() error {
	for i := 1; i < len(c.Steps); i++ {
		if c.Steps[i].Y.Cmp(c.Steps[i-1].Y) > 0 {
			return errors.New("curve: value increases over time")
		}
	}
	return nil
}

// Combine returns the pointwise sum of two curves.
// The result interpolates over the union of both curves' breakpoints, which
// keeps already scheduled releases intact when new funding is added.
func (c *Curve) Combine(other *Curve) *Curve {
	if c.Kind == KindConstant && other.Kind == KindConstant {
		return Constant(new(big.Int).Add(c.Steps[0].Y, other.Steps[0].Y))
	}

	xs := make(map[uint64]struct{}, len(c.Steps)+len(other.Steps))
	for _, s := range c.Steps {
		xs[s.X] = struct{}{}
	}
	for _, s := range other.Steps {
		xs[s.X] = struct{}{}
	}
	merged := make([]Step, 0, len(xs))
	for x := range xs {
		merged = append(merged, Step{X: x})
	}
	sortSteps(merged)
	for i := range merged {
		merged[i].Y = new(big.Int).Add(c.ValueAt(merged[i].X), other.ValueAt(merged[i].X))
	}
	return &Curve{Kind: KindPiecewiseLinear, Steps: merged}
}

func sortSteps(steps []Step) {
	// insertion sort; breakpoint counts are small
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j].X < steps[j-1].X; j-- {
			steps[j], steps[j-1] = steps[j-1], steps[j]
		}
	}
}
