package math

import "golang.org/x/exp/constraints"

// Clamp returns f limited to the range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampExtent limits a width/height pair to the given bounds, dimension by dimension.
func ClampExtent[T constraints.Integer](width, height, minWidth, minHeight, maxWidth, maxHeight T) (T, T) {
	return Clamp(width, minWidth, maxWidth), Clamp(height, minHeight, maxHeight)
}
