package depthsort

import (
	"context"
	"fmt"

	"github.com/gekko3d/depthsort/sortrt/core"
)

// CopyStage moves data into grids without changing it.
type CopyStage struct {
	log Logger
}

func NewCopyStage(log Logger) *CopyStage {
	return &CopyStage{log: orNop(log)}
}

// Copy stages source into destination, zero-padding missing entries. The
// data reaches the device before the destination's next use.
func (s *CopyStage) Copy(ctx context.Context, source []Element, destination *Grid) (*Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if destination.buf == nil {
		return nil, fmt.Errorf("%w: grid %s", ErrReleased, destination.name)
	}
	n := destination.Len()
	if len(source) > n {
		return nil, fmt.Errorf("%w: %d elements do not fit %s (%d)", ErrSizeMismatch, len(source), destination, n)
	}
	if len(source) < n {
		s.log.Debugf("copy: padding %d of %d cells in %s", n-len(source), n, destination.name)
	}
	destination.stage(core.Pad(source, n))
	return destination, nil
}

// CopyGrid runs the identity pass from src to dst on the device.
func (s *CopyStage) CopyGrid(ctx context.Context, src, dst *Grid) (*Grid, error) {
	if err := sameShape(src, dst); err != nil {
		return nil, err
	}
	if err := src.sync(); err != nil {
		return nil, err
	}
	if dst.buf == nil {
		return nil, fmt.Errorf("%w: grid %s", ErrReleased, dst.name)
	}
	if err := src.dev.Copy(ctx, src.buf, dst.buf); err != nil {
		return nil, fmt.Errorf("copy %s -> %s: %w", src.name, dst.name, err)
	}
	// the device write supersedes anything still staged
	dst.staged = nil
	dst.needsUpload = false
	return dst, nil
}
