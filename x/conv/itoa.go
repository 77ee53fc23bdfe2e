package conv

// Itoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for int64. Negative numbers supported.
// No allocations; no fmt/strconv dependency.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	i = digits(buf, i, u, 1)
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// Fixed writes n scaled down by 10^places, e.g. Fixed(buf, 2325, 2) => "23.25".
// The fraction is zero padded to places digits.
func Fixed(buf []byte, n int64, places int) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	if places <= 0 {
		return Itoa(buf, n)
	}
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	var pow uint64 = 1
	for k := 0; k < places; k++ {
		pow *= 10
	}
	i = digits(buf, i, u%pow, places)
	if i > 0 {
		i--
		buf[i] = '.'
	}
	i = digits(buf, i, u/pow, 1)
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// digits writes u backwards ending at buf[i-1], at least min digits wide.
func digits(buf []byte, i int, u uint64, min int) int {
	for n := 0; (u > 0 || n < min) && i > 0; n++ {
		i--
		buf[i] = byte('0' + (u % 10))
		u /= 10
	}
	return i
}
