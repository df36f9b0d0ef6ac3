package chanx

import "github.com/baxromumarov/bchan"

// Broadcast returns n handles of c created with [bchan.Chan.Dup]. Each
// sees every item sent to the channel from now on, independently of the
// others. c itself keeps its own position and is not among the results.
//
// All handles share c's capacity, and every receive on any of them frees
// one slot, so a slow reader does not hold writers back.
//
// Broadcast panics if n is not positive.
func Broadcast[T any](c *bchan.Chan[T], n int) []*bchan.Chan[T] {
	if n <= 0 {
		panic("chanx: Broadcast requires n > 0")
	}
	outs := make([]*bchan.Chan[T], n)
	for i := range outs {
		outs[i] = c.Dup()
	}
	return outs
}
