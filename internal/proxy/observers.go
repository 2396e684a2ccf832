package proxy

import (
	"slices"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// observer is one attached handler.
type observer struct {
	handle types.Handle
	fn     types.Handler
}

// registry fans notifications out to handlers in registration order.
// Handlers attached or detached while a notification is being delivered
// take effect from the next notification.
type registry struct {
	last    types.Handle
	entries []observer
}

func (r *registry) add(fn types.Handler) types.Handle {
	r.last++
	r.entries = append(r.entries, observer{handle: r.last, fn: fn})
	return r.last
}

func (r *registry) remove(h types.Handle) bool {
	for i, o := range r.entries {
		if o.handle == h {
			r.entries = slices.Delete(r.entries, i, i+1)
			return true
		}
	}
	return false
}

func (r *registry) notify(n types.Notification) {
	if len(r.entries) == 0 {
		return
	}
	for _, o := range slices.Clone(r.entries) {
		o.fn(n)
	}
}

func (r *registry) reset() {
	r.entries = nil
}

func (r *registry) len() int {
	return len(r.entries)
}

// delivery is a notification held back until the mutation that raised it
// has finished.
type delivery struct {
	to *registry
	n  types.Notification
}

// begin marks the start of a mutation. Every begin must be paired with a
// deferred end.
func (c *Context) begin() {
	c.depth++
}

// end closes a mutation. Closing the outermost one delivers the held
// notifications in the order they were raised. A handler that mutates
// during delivery drains the remaining queue before its own call returns.
func (c *Context) end() {
	c.depth--
	if c.depth > 0 {
		return
	}
	for len(c.pending) > 0 {
		d := c.pending[0]
		c.pending = c.pending[1:]
		d.to.notify(d.n)
	}
	c.pending = nil
}

// emit raises n to the subscribers of r once the current mutation settles.
func (c *Context) emit(r *registry, n types.Notification) {
	if r.len() == 0 {
		return
	}
	if c.depth == 0 {
		r.notify(n)
		return
	}
	c.pending = append(c.pending, delivery{to: r, n: n})
}
