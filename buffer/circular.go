package buffer

import "github.com/CraigKelly/hmc2d/model"

// CircularVec is a circular buffer of points with the ability to iterate over
// the first and second halves of the points collected in the order that they
// were appended. Each chain keeps its latest accepted samples here: comparing
// the older half of the window with the newer half shows whether the chain
// is still drifting between regions of the density.
type CircularVec struct {
	buffer    []model.Vec // actual storage
	pos       int         // Current position in buffer
	BufSize   int         // BufSize is the fixed number of points maintained in memory
	Count     int         // Count is the number of points in memory. Will always be <= BufSize
	TotalSeen int64       // TotalSeen is the total number of times Add has been called
}

// NewCircularVec creates a new circular buffer of totalSize. If totalSize is
// not a multiple of 2, it will be adjusted down. Sizes below 2 become 2.
func NewCircularVec(totalSize int) *CircularVec {
	half := totalSize / 2
	if half < 1 {
		half = 1
	}
	total := half + half

	return &CircularVec{
		buffer:  make([]model.Vec, total),
		pos:     0,
		BufSize: total,
		Count:   0,
	}
}

// Internal: return the next array position
func (c *CircularVec) nextPos() int {
	return (c.pos + 1) % c.BufSize
}

// Add appends the given point to the buffer, overwriting the oldest entry
func (c *CircularVec) Add(v model.Vec) {
	c.TotalSeen++

	c.buffer[c.pos] = v
	c.pos = c.nextPos()

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize // max out
	}
}

// Reset empties the buffer
func (c *CircularVec) Reset() {
	c.pos = 0
	c.Count = 0
	c.TotalSeen = 0
}

// Values returns a copy of the stored points, oldest first
func (c *CircularVec) Values() []model.Vec {
	out := make([]model.Vec, 0, c.Count)
	start := (c.pos - c.Count + c.BufSize) % c.BufSize
	for i := 0; i < c.Count; i++ {
		out = append(out, c.buffer[(start+i)%c.BufSize])
	}
	return out
}

// FirstHalf returns an iterator over the first (oldest) half of the stored
// values. Will not return a valid iterator until Add has been called at least
// BufSize times
func (c *CircularVec) FirstHalf() *CircularVecIterator {
	if c.Count < c.BufSize {
		return nil
	}

	return &CircularVecIterator{
		buf:    c,
		curr:   c.pos, // Oldest is the one we're about to write
		remain: c.BufSize / 2,
	}
}

// SecondHalf returns an iterator over the second (most recent) half of the
// stored values. Will not return a valid iterator until Add has been called at
// least BufSize times
func (c *CircularVec) SecondHalf() *CircularVecIterator {
	if c.Count < c.BufSize {
		return nil
	}

	half := c.BufSize / 2
	pos := (c.pos + half) % c.BufSize

	return &CircularVecIterator{
		buf:    c,
		curr:   pos,
		remain: half,
	}
}

// CircularVecIterator provides an iterator over a CircularVec buffer
type CircularVecIterator struct {
	buf    *CircularVec
	curr   int
	remain int
}

// Next returns True when there are more values to read via Value
func (i *CircularVecIterator) Next() bool {
	return i.remain > 0
}

// Value return the next point to be read. Should only be called if Next() is
// True
func (i *CircularVecIterator) Value() model.Vec {
	v := i.buf.buffer[i.curr]
	i.curr = (i.curr + 1) % i.buf.BufSize
	i.remain--
	return v
}

// Collect drains the iterator into a slice
func (i *CircularVecIterator) Collect() []model.Vec {
	out := make([]model.Vec, 0, i.remain)
	for i.Next() {
		out = append(out, i.Value())
	}
	return out
}
