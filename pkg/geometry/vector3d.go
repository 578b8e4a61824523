package geometry

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Epsilon Precision constant for float64 comparisons.
const (
	Epsilon = 1e-9
)

// Vector3D represents a 3D vector or point in cartesian space.
// Y is the vertical axis (height), X and Z span the horizontal plane,
// which is the convention of the field the agents fly over.
type Vector3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Zero is the null vector.
var Zero = Vector3D{}

// NewVector creates a new Vector3D.
func NewVector(x, y, z float64) Vector3D {
	return Vector3D{X: x, Y: y, Z: z}
}

// NewVectorCylindrical creates a point at the given horizontal radius and azimuth
// (radians, measured from +X toward +Z) around center, at absolute height y.
func NewVectorCylindrical(center Vector3D, radius, azimuth, y float64) Vector3D {
	x := radius * math.Cos(azimuth)
	z := radius * math.Sin(azimuth)

	// Handle standard floating point precision issues near zero
	if math.Abs(x) < Epsilon {
		x = 0
	}
	if math.Abs(z) < Epsilon {
		z = 0
	}
	return Vector3D{X: center.X + x, Y: y, Z: center.Z + z}
}

// String implements the fmt.Stringer interface.
func (v Vector3D) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// ---------------------------------------------------------------------
// Arithmetic Operations
// Value receivers, new values returned.
// ---------------------------------------------------------------------

// Add adds two vectors and returns the result.
func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub subtracts the other vector from the current vector.
func (v Vector3D) Sub(other Vector3D) Vector3D {
	return Vector3D{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul scales the vector by a scalar value.
func (v Vector3D) Mul(scalar float64) Vector3D {
	return Vector3D{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// Div scales the vector by 1/scalar.
// A zero scalar yields an Inf vector together with an error.
func (v Vector3D) Div(scalar float64) (Vector3D, error) {
	if scalar == 0 {
		return Vector3D{math.Inf(1), math.Inf(1), math.Inf(1)}, errors.New("vector cannot be divided by zero")
	}
	return Vector3D{v.X / scalar, v.Y / scalar, v.Z / scalar}, nil
}

// ---------------------------------------------------------------------
// Vector3D Products
// ---------------------------------------------------------------------

// Dot calculates the dot product of two vectors.
func (v Vector3D) Dot(other Vector3D) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross calculates the cross product v x other.
func (v Vector3D) Cross(other Vector3D) Vector3D {
	return Vector3D{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// ---------------------------------------------------------------------
// Magnitude and Normalization
// ---------------------------------------------------------------------

// LenSqr calculates the squared magnitude of the vector.
// Use it for comparisons, it avoids the square root.
func (v Vector3D) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Len calculates the magnitude (length) of the vector.
func (v Vector3D) Len() float64 {
	return math.Sqrt(v.LenSqr())
}

// HorizontalLen is the distance of the point from the vertical axis through the origin.
func (v Vector3D) HorizontalLen() float64 {
	return math.Hypot(v.X, v.Z)
}

// Normalize returns a unit vector in the same direction.
// Returns a zero vector if the length is effectively zero, never NaN.
func (v Vector3D) Normalize() Vector3D {
	l := v.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return Zero
	}
	return v.Mul(1 / l)
}

// ClampLen scales the vector down so its length does not exceed maxLen.
func (v Vector3D) ClampLen(maxLen float64) Vector3D {
	l := v.Len()
	if l <= maxLen || l < Epsilon {
		return v
	}
	return v.Mul(maxLen / l)
}

// ---------------------------------------------------------------------
// Geometric Utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another vector.
func (v Vector3D) DistanceTo(other Vector3D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another vector.
func (v Vector3D) DistanceSquaredTo(other Vector3D) float64 {
	return v.Sub(other).LenSqr()
}

// AngleTo returns the angle in radians between v and other, in [0, Pi].
// Degenerate inputs give 0.
func (v Vector3D) AngleTo(other Vector3D) float64 {
	if v.LenSqr() == 0 || other.LenSqr() == 0 || !v.IsFinite() || !other.IsFinite() {
		return 0
	}
	// atan2 stays accurate for nearly parallel vectors, where acos does not
	return math.Atan2(v.Cross(other).Len(), v.Dot(other))
}

// RotateAroundY rotates the vector by angle (radians) around the vertical axis through center.
// Height is preserved.
func (v Vector3D) RotateAroundY(angle float64, center Vector3D) Vector3D {
	relX := v.X - center.X
	relZ := v.Z - center.Z
	cosTheta := math.Cos(angle)
	sinTheta := math.Sin(angle)
	return Vector3D{
		X: relX*cosTheta - relZ*sinTheta + center.X,
		Y: v.Y,
		Z: relX*sinTheta + relZ*cosTheta + center.Z,
	}
}

// Lerp (Linear Interpolate) calculates a point between v and target based on t [0, 1].
func (v Vector3D) Lerp(target Vector3D, t float64) Vector3D {
	return v.Add(target.Sub(v).Mul(t))
}

// WithY returns a copy of v at height y.
func (v Vector3D) WithY(y float64) Vector3D {
	v.Y = y
	return v
}

// ---------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------

// Eq checks if two vectors are approximately equal using the Epsilon constant.
func (v Vector3D) Eq(other Vector3D) bool {
	return math.Abs(v.X-other.X) <= Epsilon &&
		math.Abs(v.Y-other.Y) <= Epsilon &&
		math.Abs(v.Z-other.Z) <= Epsilon
}

// IsFinite reports whether no component is NaN or Inf.
func (v Vector3D) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------

// Clamp bounds value to [lo, hi].
func Clamp[T constraints.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
