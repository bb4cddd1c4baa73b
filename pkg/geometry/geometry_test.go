package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeClampsToMinimum(t *testing.T) {
	// A window smaller than the device's minimum is expanded up to minLen;
	// since the expanded window still fits under maxLen from offset 0, no
	// overflow occurs and skip stays 0 (skip only arises from the
	// shift-left-to-fit-maxLen case below).
	tl := FixedMM(0)
	units300 := 300.0
	br := FixedMM(100 * fixedScale * mmPerInch / units300) // 100 px at units=300 -> mm

	w := Compute(tl, br, 600, 2550, 600, 300)

	assert.Equal(t, int32(0), w.Off)
	assert.Equal(t, int32(600), w.Len)
	assert.Equal(t, int32(0), w.Skip)
}

func TestComputeNoClampingWhenWithinRange(t *testing.T) {
	tl := FixedMM(0)
	units300 := 300.0
	br := FixedMM(2000 * fixedScale * mmPerInch / units300) // 2000 px at units=300 -> mm

	w := Compute(tl, br, 100, 2550, 300, 300)
	assert.Equal(t, int32(0), w.Off)
	assert.True(t, w.Len >= 100 && w.Len <= 2550)
	assert.Equal(t, int32(0), w.Skip)
}

func TestComputeOverflowShiftsOffsetLeft(t *testing.T) {
	// A window near the max edge that, once clamped up to minLen, would
	// overflow maxLen must shift left and report the overflow as skip.
	units300 := 300.0
	tl := FixedMM(2500 * fixedScale * mmPerInch / units300)
	br := FixedMM(2550 * fixedScale * mmPerInch / units300)

	w := Compute(tl, br, 600, 2550, 300, 300)
	assert.LessOrEqual(t, w.Off+w.Len, int32(2550))
	assert.Greater(t, w.Skip, int32(0))
}

func TestComputeMinLenFloorsAtOne(t *testing.T) {
	w := Compute(FixedMM(0), FixedMM(0), 0, 2550, 300, 300)
	assert.Equal(t, int32(1), w.Len)
}

func TestBoundHelper(t *testing.T) {
	assert.Equal(t, int32(5), bound(1, 5, 10))
	assert.Equal(t, int32(10), bound(20, 5, 10))
	assert.Equal(t, int32(7), bound(7, 5, 10))
}
