package shader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
)

// includePrefix marks a line that is replaced by a registered WGSL snippet.
//
// Syntax: //#include <name>
const includePrefix = "//#include"

// IncludeFrameUniform names the FrameUniform struct shared by every kernel.
const IncludeFrameUniform = "frame_uniform"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	registry map[string]string
	included []string
}

// PreProcessor expands //#include directives in WGSL source with the struct sources
// generated from the engine's GPU types.
type PreProcessor interface {
	// Process replaces every include directive with its registered source. A name may be
	// included once; later directives for the same name are dropped.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: if a directive is malformed or names an unknown snippet
	Process(source string) (string, error)

	// Includes returns the names expanded by the last Process call, in source order.
	Includes() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's include registry.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		registry: map[string]string{
			IncludeFrameUniform: simulation.FrameUniformSource(),
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), includePrefix)
		if !ok {
			out = append(out, line)
			continue
		}

		args := strings.Fields(rest)
		if len(args) != 1 {
			return "", fmt.Errorf("line %d: #include requires exactly one name", i+1)
		}
		name := args[0]
		snippet, ok := p.registry[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown #include %q", i+1, name)
		}
		if slices.Contains(p.included, name) {
			continue
		}
		p.included = append(p.included, name)
		out = append(out, strings.TrimRight(snippet, "\n"))
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Includes() []string {
	return slices.Clone(p.included)
}
