package interval

import "math"

type myint64 int64

// add returns u + v.
func (u myint64) add(v myint64) (myint64, bool) {
	s := u + v
	if (v > 0 && s < u) || (v < 0 && s > u) {
		return 0, false
	}
	return s, true
}

// sub returns u - v.
func (u myint64) sub(v myint64) (myint64, bool) {
	d := u - v
	if (v > 0 && d > u) || (v < 0 && d < u) {
		return 0, false
	}
	return d, true
}

// mul returns u * v.
func (u myint64) mul(v myint64) (myint64, bool) {
	if u == 0 || v == 0 {
		return 0, true
	}
	if (u == -1 && v == math.MinInt64) || (v == -1 && u == math.MinInt64) {
		return 0, false
	}
	p := u * v
	if p/v != u {
		return 0, false
	}
	return p, true
}

// calc chains checked operations; the first overflow sticks and every later
// result is zero.
type calc struct {
	overflow bool
}

func (c *calc) add(a, b int64) int64 {
	if c.overflow {
		return 0
	}
	r, ok := myint64(a).add(myint64(b))
	c.overflow = !ok
	return int64(r)
}

func (c *calc) sub(a, b int64) int64 {
	if c.overflow {
		return 0
	}
	r, ok := myint64(a).sub(myint64(b))
	c.overflow = !ok
	return int64(r)
}

func (c *calc) mul(a, b int64) int64 {
	if c.overflow {
		return 0
	}
	r, ok := myint64(a).mul(myint64(b))
	c.overflow = !ok
	return int64(r)
}

// mulAdd returns a + k*b.
func (c *calc) mulAdd(a, k, b int64) int64 {
	return c.add(a, c.mul(k, b))
}

func (c *calc) err() error {
	if c.overflow {
		return ErrOverflow
	}
	return nil
}
