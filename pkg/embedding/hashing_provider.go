package embedding

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingProvider is a deterministic feature-hashing embedder. Tokens are
// hashed into a fixed number of signed buckets and the result L2-normalised,
// so the same case attributes always land on the same point and cosine
// distance is meaningful without any external model call.
type HashingProvider struct {
	dims int
}

func NewHashingProvider(dims int) *HashingProvider {
	if dims <= 0 {
		dims = 64
	}
	return &HashingProvider{dims: dims}
}

func (p *HashingProvider) Dimensions() int {
	return p.dims
}

func (p *HashingProvider) Generate(text string) ([]float32, error) {
	vec := make([]float32, p.dims)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(p.dims))
		// Top bit decides the sign so collisions partially cancel instead of
		// piling up.
		if sum&(1<<63) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
