package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraBlockSource holds the WGSL struct members matching GPUCameraBlock.
// It is spliced into the FrameUniform struct of the compute shaders.
//
//go:embed assets/camera_block.wgsl
var GPUCameraBlockSource string

// GPUCameraBlock is the GPU-aligned camera section of the frame uniform.
// Every field is a vec4<f32> with w = 0.
// Size: 80 bytes.
type GPUCameraBlock struct {
	Position [4]float32 // offset  0: world-space camera position
	Forward  [4]float32 // offset 16: basis F
	Centre   [4]float32 // offset 32: near-plane centre
	Up       [4]float32 // offset 48: basis U
	Right    [4]float32 // offset 64: basis R
}

// Size returns the size of the GPUCameraBlock struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraBlock) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the block into dst, which must hold at least Size() bytes.
//
// Parameters:
//   - dst: destination byte slice
func (g *GPUCameraBlock) MarshalInto(dst []byte) {
	rows := [5][4]float32{g.Position, g.Forward, g.Centre, g.Up, g.Right}
	for r, row := range rows {
		for i, v := range row {
			binary.LittleEndian.PutUint32(dst[r*16+i*4:], math.Float32bits(v))
		}
	}
}

// Marshal serializes the GPUCameraBlock struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraBlock) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf)
	return buf
}
