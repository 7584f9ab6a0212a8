package depthsort

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformStage projects every cell of a position grid through a 4x4 matrix.
// Each cell is independent, so the device is free to process them in any
// order.
type TransformStage struct {
	log Logger
}

func NewTransformStage(log Logger) *TransformStage {
	return &TransformStage{log: orNop(log)}
}

// Transform writes m·(x, y, z, 1) of every input cell to the same cell of
// output. On error output holds its previous content.
func (s *TransformStage) Transform(ctx context.Context, input *Grid, m mgl32.Mat4, output *Grid) (*Grid, error) {
	if err := sameShape(input, output); err != nil {
		return nil, err
	}
	if err := input.sync(); err != nil {
		return nil, err
	}
	if output.buf == nil {
		return nil, fmt.Errorf("%w: grid %s", ErrReleased, output.name)
	}
	if err := input.dev.Transform(ctx, input.buf, m, output.buf); err != nil {
		return nil, fmt.Errorf("transform %s -> %s: %w", input.name, output.name, err)
	}
	output.staged = nil
	output.needsUpload = false
	s.log.Debugf("transform: %s -> %s", input.name, output.name)
	return output, nil
}
