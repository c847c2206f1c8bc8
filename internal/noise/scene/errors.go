package scene

import "errors"

var (
	// ErrSceneFrozen is returned by every Add* call after Finish.
	ErrSceneFrozen = errors.New("scene: builder is frozen")
	// ErrInvalidGroundCoefficient reports a ground factor outside [0,1].
	ErrInvalidGroundCoefficient = errors.New("scene: ground coefficient must be within [0,1]")
	// ErrInvalidHeight reports a NaN height or a height list that does not
	// match its geometry.
	ErrInvalidHeight = errors.New("scene: invalid height")
	// ErrTriangulation reports topography that cannot be triangulated.
	ErrTriangulation = errors.New("scene: terrain triangulation failed")
)
