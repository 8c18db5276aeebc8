package embedding

// Provider turns free text into a fixed-width feature vector suitable for
// nearest-neighbour lookups.
type Provider interface {
	Generate(text string) ([]float32, error)
	Dimensions() int
}
