package shadow

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldToShadow builds the matrix taking a world position to the depth texel
// of one atlas tile: tileRemap * scaleBias * projection * view. scaleBias maps
// clip space [-1, 1] to [0, 1] and tileRemap squeezes that unit square into the
// tile at offset.
//
// Parameters:
//   - proj: the tile's projection matrix
//   - view: the tile's view matrix
//   - offset: the tile's pixel offset inside the atlas
//   - mapSizeRcp: 1 / atlas edge length
//   - tileSize: tile edge length in pixels
//   - reversedZ: negate the projection's depth row first
//
// Returns:
//   - mgl32.Mat4: the world-to-shadow matrix
func WorldToShadow(proj, view mgl32.Mat4, offset mgl32.Vec2, mapSizeRcp float32, tileSize int, reversedZ bool) mgl32.Mat4 {
	if reversedZ {
		common.NegateRow(&proj, 2)
	}
	m := common.TextureScaleBias().Mul4(proj.Mul4(view))

	remap := mgl32.Ident4()
	remap.Set(0, 0, float32(tileSize)*mapSizeRcp)
	remap.Set(1, 1, float32(tileSize)*mapSizeRcp)
	remap.Set(0, 3, offset[0]*mapSizeRcp)
	remap.Set(1, 3, offset[1]*mapSizeRcp)
	return remap.Mul4(m)
}
