package culling

// ReferenceOption is a function that configures a Reference during construction.
type ReferenceOption func(*Reference)

// WithShadowDistance sets how far from the camera directional shadows reach.
//
// Parameters:
//   - d: the shadow distance in world units
//
// Returns:
//   - ReferenceOption: a function that applies the distance option
func WithShadowDistance(d float32) ReferenceOption {
	return func(r *Reference) {
		r.shadowDistance = d
	}
}
