package compress

// NoOpCompressor stores the body as is.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a pass-through codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns data unchanged.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data unchanged after checking its length.
func (c NoOpCompressor) Decompress(data []byte, size int) ([]byte, error) {
	return checkSize("none", data, size)
}
