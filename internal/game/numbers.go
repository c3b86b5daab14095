package game

import "math"

// maxSquareRoot is the largest r with r*r <= math.MaxInt64.
const maxSquareRoot = 3037000499

// IsPrime reports whether n is a prime number.
func IsPrime(n int64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := int64(3); i <= n/i; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// IsPerfectSquare reports whether n is the square of an integer.
func IsPerfectSquare(n int64) bool {
	if n < 0 {
		return false
	}
	r := min(int64(math.Sqrt(float64(n))), maxSquareRoot)
	// float64 rounding can be off by one for large n.
	for r*r > n {
		r--
	}
	for r < maxSquareRoot && (r+1)*(r+1) <= n {
		r++
	}
	return r*r == n
}
