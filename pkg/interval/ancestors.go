package interval

// AncestorChain decodes the left bounds of every ancestor of the entry whose
// left bound is nv/dv, from the root down to the entry itself. It expands
// nv/dv as a continued fraction, so no other row is needed.
func AncestorChain(nv, dv int64) []Bound {
	var chain []Bound

	num, den := nv, dv
	// running left bound and right bound of the ancestor found so far
	ancNv, ancDv, ancSNv, ancSDv := int64(0), int64(1), int64(1), int64(0)
	for num > 0 && den > 0 {
		div, mod := num/den, num%den
		ancNv += div * ancSNv
		ancDv += div * ancSDv
		ancSNv += ancNv
		ancSDv += ancDv
		chain = append(chain, Bound{Nv: ancNv, Dv: ancDv})

		num = mod
		if num != 0 {
			den %= mod
			if den == 0 {
				den = 1
			}
		}
	}
	return chain
}
