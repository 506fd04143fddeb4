package voxel

// BufferIndex names one of the two diffusion buffers.
type BufferIndex uint32

const (
	// BufferA is the first diffusion buffer and the one initialization writes.
	BufferA BufferIndex = iota
	// BufferB is the second diffusion buffer.
	BufferB
)

// Other returns the buffer that is not b.
func (b BufferIndex) Other() BufferIndex {
	return b ^ 1
}

// String implements fmt.Stringer.
func (b BufferIndex) String() string {
	if b == BufferA {
		return "A"
	}
	return "B"
}

// BufferSelector tracks which buffer holds the latest completed values.
// The zero value selects BufferA.
type BufferSelector struct {
	current BufferIndex
}

// Current returns the buffer holding the latest completed values.
func (s *BufferSelector) Current() BufferIndex {
	return s.current
}

// Toggle flips the current buffer and returns the new one. It is the only way the selection changes.
func (s *BufferSelector) Toggle() BufferIndex {
	s.current = s.current.Other()
	return s.current
}

// Flag reports the selection as the boolean carried to the kernels: true while BufferA is current.
func (s *BufferSelector) Flag() bool {
	return s.current == BufferA
}
