package bind_group_provider

// BufferWrite describes one queue write into the buffer at a binding of a provider.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
