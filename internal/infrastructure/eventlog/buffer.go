package eventlog

import "sync"

// Capacity is the number of lines a Buffer retains.
const Capacity = 500

// Buffer is a thread-safe ring of log lines with O(1) append and O(N) read.
type Buffer struct {
	entries [Capacity]string // fixed-size ring (no heap allocations)
	head    int              // next write position
	size    int              // current number of entries
	mu      sync.RWMutex     // protects all fields
}

// Append adds a line, overwriting the oldest when full.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = line
	b.head = (b.head + 1) % Capacity
	if b.size < Capacity {
		b.size++
	}
}

// Read returns the last n lines, newest first, in a new slice.
// n <= 0 or n > Capacity means everything retained.
func (b *Buffer) Read(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return nil
	}
	if n <= 0 || n > b.size {
		n = b.size
	}

	// newest is one behind head
	newest := (b.head - 1 + Capacity) % Capacity

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = b.entries[(newest-i+Capacity)%Capacity]
	}
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}
