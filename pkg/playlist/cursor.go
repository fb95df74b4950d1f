// Package playlist models the ordered playlist cursor the generated control
// script runs per source. Both implementations must agree on every call.
package playlist

// Cursor walks an ordered list of URIs.
//
// Next returns the item at the current index and advances. When the index
// runs past the end it wraps to 0 if looping, otherwise the cursor is
// exhausted for good and Next keeps returning false.
//
// Not safe for concurrent use.
type Cursor struct {
	items     []string
	loop      bool
	index     int
	exhausted bool
}

// New returns a cursor over a copy of items.
func New(items []string, loop bool) *Cursor {
	return &Cursor{items: append([]string(nil), items...), loop: loop}
}

// Next returns the next URI, or false when the list is empty or exhausted.
func (c *Cursor) Next() (string, bool) {
	if len(c.items) == 0 || c.exhausted {
		return "", false
	}
	uri := c.items[c.index]
	c.index++
	if c.index >= len(c.items) {
		if c.loop {
			c.index = 0
		} else {
			c.exhausted = true
		}
	}
	return uri, true
}

// Peek returns what Next would return without advancing.
func (c *Cursor) Peek() (string, bool) {
	if len(c.items) == 0 || c.exhausted {
		return "", false
	}
	return c.items[c.index], true
}

// Index is the position Next reads from.
func (c *Cursor) Index() int { return c.index }

// Len is the number of items.
func (c *Cursor) Len() int { return len(c.items) }

// Loop reports whether the cursor wraps.
func (c *Cursor) Loop() bool { return c.loop }

// Exhausted reports whether a non-looping cursor ran past its last item.
func (c *Cursor) Exhausted() bool { return c.exhausted }

// Reset rewinds to the first item.
func (c *Cursor) Reset() {
	c.index = 0
	c.exhausted = false
}
