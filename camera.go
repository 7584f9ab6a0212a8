package depthsort

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera produces the per-frame transform fed to the TransformStage.
// Y is up; the camera orbits Target at Distance.
type Camera struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32

	FovDegrees float32
	Near       float32
	Far        float32
}

// NewCamera looks down -Z at the origin from (0, 0, 25).
func NewCamera() *Camera {
	return &Camera{
		Target:     mgl32.Vec3{0, 0, 0},
		Distance:   25,
		FovDegrees: 60,
		Near:       0.5,
		Far:        100,
	}
}

func (c *Camera) Position() mgl32.Vec3 {
	cp := math.Cos(float64(c.Pitch))
	offset := mgl32.Vec3{
		float32(cp * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(cp * math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset.Mul(c.Distance))
}

// Orbit rotates the camera around Target. Pitch is clamped short of the poles.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	const limit = math.Pi/2 - 0.01
	c.Yaw += dYaw
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, -limit, limit)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), aspect, c.Near, c.Far)
}

// Transform is projection · view · model. Clip-space z grows with distance,
// so sorting Descending yields back-to-front order.
func (c *Camera) Transform(aspect float32, model mgl32.Mat4) mgl32.Mat4 {
	return c.ProjectionMatrix(aspect).Mul4(c.ViewMatrix()).Mul4(model)
}
