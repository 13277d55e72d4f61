package stego

// RandPerm returns a permutation of [0, n) drawn from g with the inside-out
// Fisher-Yates construction.
func RandPerm(n int, g *ISAAC) []int {
	if n <= 0 {
		return nil
	}
	perm := make([]int, n)
	for i := 1; i < n; i++ {
		idx := int(g.Float64() * float64(i+1))
		if idx < i {
			perm[i] = perm[idx]
		}
		perm[idx] = i
	}
	return perm
}

// Shuffle permutes coeffs[start:] in place so that position i receives the
// element at start+perm[i]. It returns the permutation for Unshuffle.
func Shuffle[T any](coeffs []T, start int, g *ISAAC) []int {
	if start >= len(coeffs) {
		return nil
	}
	sub := coeffs[start:]
	perm := RandPerm(len(sub), g)
	tmp := make([]T, len(sub))
	for i, p := range perm {
		tmp[i] = sub[p]
	}
	copy(sub, tmp)
	return perm
}

// Unshuffle restores coeffs[start:] after Shuffle with the same perm.
func Unshuffle[T any](coeffs []T, start int, perm []int) {
	if start >= len(coeffs) {
		return
	}
	sub := coeffs[start:]
	tmp := make([]T, len(sub))
	for i, p := range perm {
		tmp[p] = sub[i]
	}
	copy(sub, tmp)
}

// addNoise XORs every bit of data, most significant first, with one draw
// of g (1 when the signed output is non-negative). Applying it twice with
// identically seeded generators restores the input.
func addNoise(data []byte, g *ISAAC) {
	for i := range data {
		var mask byte
		for bit := 7; bit >= 0; bit-- {
			if g.Int32() >= 0 {
				mask |= 1 << bit
			}
		}
		data[i] ^= mask
	}
}
