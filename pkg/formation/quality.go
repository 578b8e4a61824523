package formation

import (
	"math"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// OptimalElevation is the viewing elevation, in degrees, that scores best.
const OptimalElevation = 35.0

// Quality scores a formation for reconstruction. Higher is better everywhere.
type Quality struct {
	// Baseline is the mean pairwise angular separation seen from the target, in degrees.
	Baseline float64
	// Elevation is the mean of exp(-|elevation-35°|/10) over the poses, in (0,1].
	Elevation float64
	Overall   float64
}

// Evaluate scores poses looking at target.
func Evaluate(poses []geometry.Vector3D, target geometry.Vector3D) Quality {
	n := len(poses)
	if n == 0 {
		return Quality{}
	}

	var baselineSum float64
	for i := 0; i < n; i++ {
		vi := poses[i].Sub(target)
		for j := i + 1; j < n; j++ {
			baselineSum += math.Abs(vi.AngleTo(poses[j].Sub(target))) * 180 / math.Pi
		}
	}

	var elevationSum float64
	for _, p := range poses {
		err := math.Abs(ElevationAngle(p, target) - OptimalElevation)
		elevationSum += math.Exp(-err / 10)
	}

	q := Quality{
		Elevation: elevationSum / float64(n),
		Overall:   (baselineSum + elevationSum*100) / float64(n),
	}
	if pairs := n * (n - 1) / 2; pairs > 0 {
		q.Baseline = baselineSum / float64(pairs)
	}
	return q
}

// ElevationAngle is the angle in degrees of camera above the target's horizon.
func ElevationAngle(camera, target geometry.Vector3D) float64 {
	d := camera.Sub(target)
	return math.Atan2(d.Y, d.HorizontalLen()) * 180 / math.Pi
}
