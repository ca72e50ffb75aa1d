package shadow

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeFace selects one face of a point light's shadow cube.
type CubeFace int

const (
	CubeFacePositiveX CubeFace = light.CubeFacePositiveX
	CubeFaceNegativeX CubeFace = light.CubeFaceNegativeX
	CubeFacePositiveY CubeFace = light.CubeFacePositiveY
	CubeFaceNegativeY CubeFace = light.CubeFaceNegativeY
	CubeFacePositiveZ CubeFace = light.CubeFacePositiveZ
	CubeFaceNegativeZ CubeFace = light.CubeFaceNegativeZ
)

// SplitData is the culling primitive of one shadow split.
type SplitData struct {
	// CullingSphere is xyz center, w radius. Perspective splits may leave it zero.
	CullingSphere mgl32.Vec4
	// CullingPlanes bound perspective splits; unused for cascades.
	CullingPlanes common.Frustum
}

// LightCullingInfo points a visible light at its range inside the split buffer.
type LightCullingInfo struct {
	Projection light.Projection
	SplitStart int
	SplitCount int
}

// CastersCullingInfos is the single batched caster-culling request of a frame.
// Splits holds MaxTilesPerLight entries per visible light; PerLight is indexed
// by visible-light index and has a zero SplitCount for unshadowed lights.
type CastersCullingInfos struct {
	Splits   []SplitData
	PerLight []LightCullingInfo
}

// Culler is the shadow-culling collaborator. Light indices are positions in
// the frame's visible-light list.
type Culler interface {
	// ShadowCasterBounds returns the bounds of every caster the light can
	// reach, or false when there are none.
	ShadowCasterBounds(lightIndex int) (common.Bounds, bool)

	// ComputeDirectionalMatrices returns the view and projection of one cascade.
	ComputeDirectionalMatrices(lightIndex, splitIndex, splitCount int, ratios mgl32.Vec3, tileSize int, nearPlane float32) (view, proj mgl32.Mat4, split SplitData)

	// ComputeSpotMatrices returns the view and projection of a spot light.
	ComputeSpotMatrices(lightIndex int) (view, proj mgl32.Mat4, split SplitData)

	// ComputePointMatrices returns the view and projection of one cube face,
	// widened by fovBias degrees.
	ComputePointMatrices(lightIndex int, face CubeFace, fovBias float32) (view, proj mgl32.Mat4, split SplitData)

	// CullShadowCasters culls casters for every split of every light at once.
	CullShadowCasters(infos CastersCullingInfos)
}
