package chanx

import "github.com/baxromumarov/bchan"

// Drain receives and discards items from c until it is closed and
// drained, and returns how many it discarded. Use it to unblock producers
// during shutdown.
func Drain[T any](c *bchan.Chan[T]) int {
	n := 0
	for {
		if _, ok := c.Recv(); !ok {
			return n
		}
		n++
	}
}
