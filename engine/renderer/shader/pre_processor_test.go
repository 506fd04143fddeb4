package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessExpandsIncludeOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//#include frame_uniform\n  //#include frame_uniform\nfn main() {}")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct FrameUniform"))
	assert.Contains(t, out, "cam_pos: vec4<f32>")
	assert.True(t, strings.HasSuffix(out, "fn main() {}"))
	assert.Equal(t, []string{IncludeFrameUniform}, pp.Includes())
}

func TestProcessWithoutIncludes(t *testing.T) {
	pp := NewPreProcessor()
	src := "fn a() {}\n// ordinary comment\n"
	out, err := pp.Process(src)
	require.NoError(t, err)

	assert.Equal(t, src, out)
	assert.Empty(t, pp.Includes())
}

func TestProcessErrors(t *testing.T) {
	pp := NewPreProcessor()

	_, err := pp.Process("fn a() {}\n//#include")
	assert.ErrorContains(t, err, "line 2")

	_, err = pp.Process("//#include a b")
	assert.ErrorContains(t, err, "exactly one name")

	_, err = pp.Process("//#include unknown_struct")
	assert.ErrorContains(t, err, `unknown #include "unknown_struct"`)
}

func TestFrameUniformMatchesRecordSize(t *testing.T) {
	known := structLayouts(parseStructBlocks(stripComments(simulation.FrameUniformSource())))

	var u simulation.GPUFrameUniform
	assert.Equal(t, uint64(u.Size()), known["FrameUniform"].size)
}
