package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardLightingDeclaresEveryResource(t *testing.T) {
	s, err := shader.NewShader("Forward Lighting", ForwardLightingSource)
	require.NoError(t, err)

	_, ok := s.BindGroupFromVarName(lightingGroup, globalsVar)
	assert.True(t, ok)
	for name, v := range bufferVars {
		_, ok := s.BindGroupFromVarName(lightingGroup, v)
		assert.True(t, ok, name)
	}
	for name, v := range textureVars {
		_, ok := s.BindGroupFromVarName(atlasGroup, v)
		assert.True(t, ok, name)
	}
	for _, v := range []string{shadowSamplerVar, cookieSamplerVar} {
		_, ok := s.BindGroupFromVarName(atlasGroup, v)
		assert.True(t, ok, v)
	}

	var groups, providers int
	for _, d := range s.Declarations() {
		switch d.Type {
		case shader.AnnotationTypeBindingGroup:
			groups++
		case shader.AnnotationTypeProvider:
			providers++
		}
	}
	assert.Equal(t, len(bufferVars)+1, groups)
	assert.Equal(t, len(textureVars)+2, providers)
}

func TestNewLightingUploaderNeedsDevice(t *testing.T) {
	_, err := NewLightingUploader(nil, nil)
	assert.Error(t, err)
}
