package model

import "math"

// EMUPerPoint is the number of English Metric Units in one typographic point.
const EMUPerPoint = 12700

// ToPoints converts a length in EMU to points.
func ToPoints(emu int64) float64 {
	return float64(emu) / EMUPerPoint
}

// ToEMU converts a length in points to EMU, rounding to the nearest whole
// unit. The container format has no fractional EMU.
func ToEMU(pt float64) int64 {
	return int64(math.Round(pt * EMUPerPoint))
}

// PositionFromEMU converts a container offset to an interchange position.
func PositionFromEMU(x, y int64) Position {
	return Position{X: ToPoints(x), Y: ToPoints(y)}
}

// SizeFromEMU converts a container extent to an interchange size.
func SizeFromEMU(cx, cy int64) Size {
	return Size{Width: ToPoints(cx), Height: ToPoints(cy)}
}

// EMU returns the position in container units.
func (p Position) EMU() (x, y int64) {
	return ToEMU(p.X), ToEMU(p.Y)
}

// EMU returns the size in container units.
func (s Size) EMU() (cx, cy int64) {
	return ToEMU(s.Width), ToEMU(s.Height)
}
