package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashingProviderDeterministic(t *testing.T) {
	p := NewHashingProvider(64)

	a, err := p.Generate("rheumatoid arthritis adalimumab aetna-ppo")
	require.NoError(t, err)
	b, err := p.Generate("rheumatoid arthritis adalimumab aetna-ppo")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashingProviderUnitNorm(t *testing.T) {
	p := NewHashingProvider(64)

	vec, err := p.Generate("chronic migraine erenumab prior therapy topiramate")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashingProviderSimilarTextsAreCloser(t *testing.T) {
	p := NewHashingProvider(64)

	base, _ := p.Generate("rheumatoid arthritis adalimumab methotrexate failed")
	near, _ := p.Generate("rheumatoid arthritis adalimumab methotrexate failure")
	far, _ := p.Generate("ankylosing spondylitis secukinumab nsaid naive")

	assert.Greater(t, cosine(base, near), cosine(base, far))
}

func TestHashingProviderTokenizerIgnoresCaseAndPunctuation(t *testing.T) {
	p := NewHashingProvider(64)

	a, _ := p.Generate("Adalimumab, 40mg (biweekly)")
	b, _ := p.Generate("adalimumab 40mg biweekly")
	assert.Equal(t, a, b)
}

func TestHashingProviderEmptyInput(t *testing.T) {
	p := NewHashingProvider(64)

	vec, err := p.Generate("")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashingProviderDefaultDims(t *testing.T) {
	p := NewHashingProvider(0)
	assert.Equal(t, 64, p.Dimensions())
}
