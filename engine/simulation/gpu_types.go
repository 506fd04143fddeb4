package simulation

import (
	_ "embed"
	"encoding/binary"
	"math"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
)

//go:embed assets/frame_uniform.wgsl
var frameUniformTemplate string

const cameraBlockMarker = "//#camera_block\n"

// FrameUniformSource returns the WGSL declaration of FrameUniform with the camera block spliced in.
//
// Returns:
//   - string: the struct source matching GPUFrameUniform
func FrameUniformSource() string {
	return strings.Replace(frameUniformTemplate, cameraBlockMarker, camera.GPUCameraBlockSource, 1)
}

// GPUFrameUniform is the per-frame parameter record shared by every kernel.
// Every row is 16 bytes so the layout matches WGSL uniform alignment without padding.
// Size: 176 bytes.
type GPUFrameUniform struct {
	WindowDims  [4]uint32             // offset   0: halfW, halfH, 0, 0
	Dims        [4]uint32             // offset  16: I, J, K, I*J
	BoundingBox [4]int32              // offset  32: minX, minY, maxX, maxY
	Camera      camera.GPUCameraBlock // offset  48: cam_pos, forward, centre, up, right
	Timestep    [4]float32            // offset 128: dt, time, base coefficient, reference temperature
	Seed        [4]uint32             // offset 144: seed, species, 0, 0
	Flags       [4]uint32             // offset 160: init, current buffer is A, 0, 0
}

// Size returns the size of the GPUFrameUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (176)
func (g *GPUFrameUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniform) Marshal() []byte {
	buf := make([]byte, g.Size())

	putU32 := func(off int, v [4]uint32) {
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[off+i*4:], x)
		}
	}

	putU32(0, g.WindowDims)
	putU32(16, g.Dims)
	for i, x := range g.BoundingBox {
		binary.LittleEndian.PutUint32(buf[32+i*4:], uint32(x))
	}
	g.Camera.MarshalInto(buf[48:128])
	for i, x := range g.Timestep {
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(x))
	}
	putU32(144, g.Seed)
	putU32(160, g.Flags)

	return buf
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
