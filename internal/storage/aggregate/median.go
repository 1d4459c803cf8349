package aggregate

// Midpoints returns the zero-based positions, in ascending order, of the
// values whose mean is the median of n values. left == right for odd n.
func Midpoints(n int64) (left, right int64) {
	return (n - 1) / 2, n / 2
}

// MedianOfSorted returns the median of an ascending slice, or 0 when empty.
func MedianOfSorted(sorted []float64) float64 {
	n := int64(len(sorted))
	if n == 0 {
		return 0
	}
	left, right := Midpoints(n)
	if left == right {
		return sorted[left]
	}
	return (sorted[left] + sorted[right]) / 2
}
