// Package axes reinterprets declared axis layouts of image volumes into the
// canonical (N, C, [Z,] Y, X) form the rest of the pipeline expects.
//
// An axis descriptor is an ordered string over the symbols S (sample),
// T (time), C (channel), Z (depth), Y and X, each occurring at most once,
// with Y and X mandatory and the symbols appearing in that relative order.
// The descriptor is declared once per dataset; per-file checking is limited
// to the rank matching the descriptor length.
package axes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// Common errors.
var (
	// ErrInvalidAxes reports a malformed axis descriptor.
	ErrInvalidAxes = errors.New("invalid axes descriptor")

	// ErrAxisMismatch reports an array whose rank does not match the
	// declared descriptor.
	ErrAxisMismatch = errors.New("axes do not match array dimensions")
)

// order is the required relative order of axis symbols.
const order = "STCZYX"

// Validate checks an axis descriptor: known symbols only, no duplicates,
// Y and X present, symbols in STCZYX relative order.
func Validate(axes string) error {
	if axes == "" {
		return fmt.Errorf("%w: empty descriptor", ErrInvalidAxes)
	}
	last := -1
	for _, r := range axes {
		pos := strings.IndexRune(order, r)
		if pos < 0 {
			return fmt.Errorf("%w: unknown symbol %q in %q", ErrInvalidAxes, r, axes)
		}
		if pos == last {
			return fmt.Errorf("%w: duplicate symbol %q in %q", ErrInvalidAxes, r, axes)
		}
		if pos < last {
			return fmt.Errorf("%w: %q is not in STCZYX order", ErrInvalidAxes, axes)
		}
		last = pos
	}
	if !strings.Contains(axes, "Y") || !strings.Contains(axes, "X") {
		return fmt.Errorf("%w: %q must contain Y and X", ErrInvalidAxes, axes)
	}
	return nil
}

// HasDepth reports whether the descriptor declares a Z axis.
func HasDepth(axes string) bool {
	return strings.Contains(axes, "Z")
}

// SpatialRank returns the number of spatial axes (2, or 3 with depth).
func SpatialRank(axes string) int {
	if HasDepth(axes) {
		return 3
	}
	return 2
}

// Canonicalize reshapes arr, whose layout is declared by axes, into the
// canonical (N, C, [Z,] Y, X) form:
//
//   - S and T merge into a single leading sample axis (product of their
//     extents). A missing sample axis is synthesized with size 1.
//   - A missing channel axis is synthesized with size 1.
//   - Z is kept when declared; Y and X are always the trailing axes.
//
// The result is rank 4 (2D data) or rank 5 (3D data) and shares arr's
// backing data. Canonicalize fails with ErrAxisMismatch when the array rank
// differs from the descriptor length.
func Canonicalize(arr *tensor.Array, axes string) (*tensor.Array, error) {
	if err := Validate(axes); err != nil {
		return nil, err
	}
	if arr.Rank() != len(axes) {
		return nil, fmt.Errorf("%w: descriptor %q has %d axes, array shape is %v",
			ErrAxisMismatch, axes, len(axes), arr.Shape())
	}

	shape := arr.Shape()
	dim := func(sym string) int {
		i := strings.Index(axes, sym)
		if i < 0 {
			return 1
		}
		return shape[i]
	}

	n := dim("S") * dim("T")
	canonical := tensor.Shape{n, dim("C")}
	if HasDepth(axes) {
		canonical = append(canonical, dim("Z"))
	}
	canonical = append(canonical, dim("Y"), dim("X"))

	out, err := arr.Reshape(canonical)
	if err != nil {
		// Unreachable for a valid descriptor: the canonical shape is a
		// permutation-free regrouping of the declared extents.
		return nil, fmt.Errorf("%w: %v", ErrAxisMismatch, err)
	}
	return out, nil
}
