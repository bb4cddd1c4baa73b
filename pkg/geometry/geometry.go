// Package geometry converts a frontend scan window, expressed in fixed-point
// millimetres, into the protocol-pixel window a scanner understands, honouring
// the device's minimum and maximum window length in each axis.
package geometry

// FixedMM is a millimetre value in 16.16 fixed-point, the same representation
// a SANE-style frontend uses for its scan-window options (SANE_Fixed).
type FixedMM int32

// mmPerInch is the millimetres-per-inch constant used to convert a
// resolution expressed in dots-per-inch into a pixels-per-millimetre factor.
const mmPerInch = 25.4

const fixedScale = 1 << 16

// Window is the result of a geometry computation for one axis: the
// protocol-pixel offset and length the device should be asked for, plus the
// residual number of image pixels (at the actual scan resolution) that must
// be skipped because the device's minimum window forced more area than the
// frontend requested.
type Window struct {
	Off  int32
	Len  int32
	Skip int32
}

// Compute implements the algorithm from spec.md §4.1: clamp the requested
// window to the device's [minLen, maxLen] range at its native units (pixels
// per the protocol's reference resolution), then, if the clamped window
// would overflow maxLen, shift it left by the overflow and record that
// overflow — rescaled from native units to the actual scan resolution res —
// as Skip.
func Compute(tl, br FixedMM, minLen, maxLen, res, units int32) Window {
	off := mm2px(tl, units)
	length := mm2px(br-tl, units)

	if minLen < 1 {
		minLen = 1
	}
	length = bound(length, minLen, maxLen)

	var skip int32
	if off+length > maxLen {
		skip = off + length - maxLen
		off -= skip
		skip = muldiv(skip, res, units)
	}

	return Window{Off: off, Len: length, Skip: skip}
}

// mm2px converts a fixed-point millimetre value to pixels at the given
// resolution (dots per inch).
func mm2px(mm FixedMM, res int32) int32 {
	// mmPerInch*fixedScale (25.4*65536 = 8323072/5) isn't an integer, so the
	// division is expressed as its exact rational equivalent to keep this a
	// compile-time-valid integer constant expression.
	return int32((int64(mm) * int64(res) * 5) / (127 * fixedScale))
}

// MMToPixels converts a fixed-point millimetre length to pixels at the given
// resolution. The option model uses it to compute the promised image
// parameters directly from the frontend's window, independent of the device
// clamping Compute applies.
func MMToPixels(mm FixedMM, res int32) int32 {
	return mm2px(mm, res)
}

// muldiv computes (a*b)/c with integer rounding toward zero, matching the
// original's math_muldiv helper used to rescale a skip between unit systems.
func muldiv(a, b, c int32) int32 {
	return int32((int64(a) * int64(b)) / int64(c))
}

func bound(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
