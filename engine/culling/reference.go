// Package culling is a CPU implementation of the camera and shadow culling
// collaborator the lighting pipeline consumes. It produces the visible-light
// list with screen rectangles and answers the shadow planner's matrix and
// caster queries.
package culling

import (
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
)

// Reference culls lights and shadow casters against one camera.
type Reference struct {
	cam            camera.Camera
	casters        []common.Bounds
	shadowDistance float32

	visible   []light.VisibleLight
	results   map[splitKey][]int
	cullCalls int
}

type splitKey struct {
	light, split int
}

var _ shadow.Culler = &Reference{}

// NewReference creates a culler for cam over the given shadow casters.
//
// Parameters:
//   - cam: the viewing camera
//   - casters: world-space bounds of every shadow caster
//   - options: variadic list of ReferenceOption functions
//
// Returns:
//   - *Reference: the culler
func NewReference(cam camera.Camera, casters []common.Bounds, options ...ReferenceOption) *Reference {
	r := &Reference{
		cam:            cam,
		casters:        casters,
		shadowDistance: shadow.DefaultSettings().MaxDistance,
		results:        make(map[splitKey][]int),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Cull keeps the lights that can affect the camera's view, fills the screen
// rectangle of each punctual light, and remembers the result as the visible
// list the shadow queries index into. Directional lights are always visible.
//
// Parameters:
//   - lights: every light in the scene
//
// Returns:
//   - []light.VisibleLight: the visible lights in input order
func (r *Reference) Cull(lights []light.VisibleLight) []light.VisibleLight {
	frustum := r.cam.Frustum()
	r.visible = r.visible[:0]
	for _, l := range lights {
		if l.Kind.IsPunctual() {
			if !frustum.IntersectsSphere(l.Position(), l.Range) {
				continue
			}
			l.ScreenRect = r.ScreenRect(l)
		}
		r.visible = append(r.visible, l)
	}
	return r.visible
}

// Visible returns the list produced by the last Cull.
func (r *Reference) Visible() []light.VisibleLight {
	return r.visible
}

// ScreenRect projects the bounding box of a punctual light's range sphere
// into normalized viewport UV. Lights whose sphere reaches behind the camera
// cover the whole screen.
//
// Parameters:
//   - l: a punctual light
//
// Returns:
//   - common.Rect: the clamped screen rectangle
func (r *Reference) ScreenRect(l light.VisibleLight) common.Rect {
	full := common.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	viewProj := r.cam.ViewProjectionMatrix()
	center, radius := l.Position(), l.Range

	rect := common.Rect{MinX: 1, MinY: 1, MaxX: 0, MaxY: 0}
	for i := range 8 {
		corner := center.Add(mgl32.Vec3{
			sign(i&1) * radius,
			sign(i&2) * radius,
			sign(i&4) * radius,
		})
		clip := viewProj.Mul4x1(corner.Vec4(1))
		if clip[3] <= 0 {
			return full
		}
		x := (clip[0]/clip[3] + 1) * 0.5
		y := (clip[1]/clip[3] + 1) * 0.5
		rect.MinX, rect.MaxX = min(rect.MinX, x), max(rect.MaxX, x)
		rect.MinY, rect.MaxY = min(rect.MinY, y), max(rect.MaxY, y)
	}
	rect.MinX, rect.MinY = common.Saturate(rect.MinX), common.Saturate(rect.MinY)
	rect.MaxX, rect.MaxY = common.Saturate(rect.MaxX), common.Saturate(rect.MaxY)
	return rect
}

func sign(bit int) float32 {
	if bit != 0 {
		return 1
	}
	return -1
}

func (r *Reference) light(index int) (light.VisibleLight, bool) {
	if index < 0 || index >= len(r.visible) {
		return light.VisibleLight{}, false
	}
	return r.visible[index], true
}

// ShadowCasterBounds returns the union of the casters that can throw a shadow
// from the light: every caster within shadow distance of the camera for
// directional lights, every caster touching the range sphere otherwise.
func (r *Reference) ShadowCasterBounds(lightIndex int) (common.Bounds, bool) {
	l, ok := r.light(lightIndex)
	if !ok {
		return common.Bounds{}, false
	}
	center, radius := l.Position(), l.Range
	if l.Kind == light.KindDirectional {
		center, radius = r.cam.Position(), r.shadowDistance
	}

	var out common.Bounds
	found := false
	for _, b := range r.casters {
		if !b.IntersectsSphere(center, radius) {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Encapsulate(b)
	}
	return out, found
}

// cascadeRange returns the view distances bounding cascade split.
func (r *Reference) cascadeRange(split, count int, ratios mgl32.Vec3) (near, far float32) {
	start := r.cam.Near()
	end := min(r.shadowDistance, r.cam.Far())
	at := func(i int) float32 {
		if i <= 0 {
			return start
		}
		if i >= count {
			return end
		}
		return start + (end-start)*ratios[i-1]
	}
	return at(split), at(split + 1)
}

// sliceSphere bounds the camera frustum between two view distances.
func (r *Reference) sliceSphere(near, far float32) (mgl32.Vec3, float32) {
	pos := r.cam.Position()
	fwd := r.cam.Forward()
	right := fwd.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() < 1e-6 {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up := right.Cross(fwd).Normalize()
	tanHalf := float32(math.Tan(float64(r.cam.Fov()) / 2))

	var corners [8]mgl32.Vec3
	for i, d := range [2]float32{near, far} {
		hh := d * tanHalf
		hw := hh * r.cam.Aspect()
		c := pos.Add(fwd.Mul(d))
		corners[i*4+0] = c.Add(right.Mul(hw)).Add(up.Mul(hh))
		corners[i*4+1] = c.Sub(right.Mul(hw)).Add(up.Mul(hh))
		corners[i*4+2] = c.Add(right.Mul(hw)).Sub(up.Mul(hh))
		corners[i*4+3] = c.Sub(right.Mul(hw)).Sub(up.Mul(hh))
	}

	var center mgl32.Vec3
	for _, c := range corners {
		center = center.Add(c)
	}
	center = center.Mul(1.0 / 8)
	var radius float32
	for _, c := range corners {
		radius = max(radius, c.Sub(center).Len())
	}
	return center, radius
}

// ComputeDirectionalMatrices fits an orthographic projection around the
// bounding sphere of one cascade's slice of the view frustum. The sphere
// center is snapped to whole shadow texels so the cascade does not shimmer
// when the camera moves.
func (r *Reference) ComputeDirectionalMatrices(lightIndex, splitIndex, splitCount int, ratios mgl32.Vec3, tileSize int, nearPlane float32) (view, proj mgl32.Mat4, split shadow.SplitData) {
	l, _ := r.light(lightIndex)
	near, far := r.cascadeRange(splitIndex, splitCount, ratios)
	center, radius := r.sliceSphere(near, far)

	fwd := l.Forward()
	up := lightUp(fwd)
	lookAt := mgl32.LookAtV(mgl32.Vec3{}, fwd, up)
	if tileSize > 0 {
		texel := 2 * radius / float32(tileSize)
		ls := lookAt.Mul4x1(center.Vec4(1))
		ls[0] = float32(math.Floor(float64(ls[0]/texel))) * texel
		ls[1] = float32(math.Floor(float64(ls[1]/texel))) * texel
		center = lookAt.Inv().Mul4x1(ls).Vec3()
	}

	// Pull the eye back past the sphere so casters in front of the slice
	// still land inside the depth range.
	backoff := radius + max(nearPlane, 0)
	eye := center.Sub(fwd.Mul(radius + backoff))
	view = mgl32.LookAtV(eye, center, up)
	proj = mgl32.Ortho(-radius, radius, -radius, radius, 0, 2*radius+backoff)
	split.CullingSphere = center.Vec4(radius)
	split.CullingPlanes = common.ExtractFrustum(proj.Mul4(view))
	return view, proj, split
}

// ComputeSpotMatrices returns a perspective looking down the spot cone.
func (r *Reference) ComputeSpotMatrices(lightIndex int) (view, proj mgl32.Mat4, split shadow.SplitData) {
	l, _ := r.light(lightIndex)
	pos, fwd := l.Position(), l.Forward()
	view = mgl32.LookAtV(pos, pos.Add(fwd), lightUp(fwd))
	proj = mgl32.Perspective(mgl32.DegToRad(l.SpotAngle), 1, nearPlane(l), max(l.Range, nearPlane(l)*2))
	split.CullingSphere = pos.Vec4(l.Range)
	split.CullingPlanes = common.ExtractFrustum(proj.Mul4(view))
	return view, proj, split
}

var cubeFaces = [6]struct{ forward, up mgl32.Vec3 }{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// ComputePointMatrices returns the perspective of one cube face, widened by
// fovBias degrees.
func (r *Reference) ComputePointMatrices(lightIndex int, face shadow.CubeFace, fovBias float32) (view, proj mgl32.Mat4, split shadow.SplitData) {
	l, _ := r.light(lightIndex)
	pos := l.Position()
	f := cubeFaces[face]
	view = mgl32.LookAtV(pos, pos.Add(f.forward), f.up)
	proj = mgl32.Perspective(mgl32.DegToRad(90+fovBias), 1, nearPlane(l), max(l.Range, nearPlane(l)*2))
	split.CullingSphere = pos.Vec4(l.Range)
	split.CullingPlanes = common.ExtractFrustum(proj.Mul4(view))
	return view, proj, split
}

// CullShadowCasters records, for every split of every shadowed light, which
// casters touch the split: the culling sphere for orthographic splits and the
// split frustum for perspective ones.
func (r *Reference) CullShadowCasters(infos shadow.CastersCullingInfos) {
	r.cullCalls++
	clear(r.results)
	for lightIndex, info := range infos.PerLight {
		for s := range info.SplitCount {
			split := infos.Splits[info.SplitStart+s]
			var hits []int
			for i, b := range r.casters {
				var hit bool
				if info.Projection == light.ProjectionOrthographic {
					sphere := split.CullingSphere
					hit = b.IntersectsSphere(sphere.Vec3(), sphere[3])
				} else {
					hit = split.CullingPlanes.IntersectsBounds(b)
				}
				if hit {
					hits = append(hits, i)
				}
			}
			r.results[splitKey{lightIndex, s}] = hits
		}
	}
}

// Casters returns the caster indices culled for one split of a light by the
// last CullShadowCasters call.
func (r *Reference) Casters(lightIndex, split int) []int {
	return r.results[splitKey{lightIndex, split}]
}

// CullCalls returns how many times CullShadowCasters has run.
func (r *Reference) CullCalls() int {
	return r.cullCalls
}

func lightUp(fwd mgl32.Vec3) mgl32.Vec3 {
	if abs(fwd.Dot(mgl32.Vec3{0, 1, 0})) > 0.99 {
		return mgl32.Vec3{0, 0, 1}
	}
	return mgl32.Vec3{0, 1, 0}
}

func nearPlane(l light.VisibleLight) float32 {
	return max(l.Shadow.NearPlane, 0.01)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
