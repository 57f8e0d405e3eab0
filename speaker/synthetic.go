package speaker

import (
	"context"
	"math/rand/v2"
	"sync"
)

// archetype is a plausible voice range. Each pair is {min, span}.
type archetype struct {
	volume, frequency, pitch, centroid [2]float64
}

var archetypes = [...]archetype{
	// low register
	{volume: [2]float64{0.60, 0.25}, frequency: [2]float64{85, 80}, pitch: [2]float64{110, 60}, centroid: [2]float64{800, 600}},
	// high register
	{volume: [2]float64{0.50, 0.35}, frequency: [2]float64{165, 100}, pitch: [2]float64{180, 100}, centroid: [2]float64{1200, 800}},
	// neutral
	{volume: [2]float64{0.45, 0.40}, frequency: [2]float64{125, 90}, pitch: [2]float64{145, 80}, centroid: [2]float64{1000, 700}},
}

// SyntheticProvider fabricates features from one of three voice archetypes.
// It is the degradation path when real measurement is unavailable and carries
// no information about who is actually speaking.
type SyntheticProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticProvider returns a provider drawing from the global source.
func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{}
}

// NewSeededSyntheticProvider returns a reproducible provider.
func NewSeededSyntheticProvider(seed uint64) *SyntheticProvider {
	return &SyntheticProvider{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *SyntheticProvider) Name() string                     { return "synthetic" }
func (p *SyntheticProvider) IsAvailable(context.Context) bool { return true }

// Execute ignores the clip and returns Generate().
func (p *SyntheticProvider) Execute(_ context.Context, _ Clip) (AudioFeatures, error) {
	return p.Generate(), nil
}

// Generate draws one feature set.
func (p *SyntheticProvider) Generate() AudioFeatures {
	if p.rng == nil {
		return draw(rand.IntN, rand.Float64)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return draw(p.rng.IntN, p.rng.Float64)
}

func draw(intn func(int) int, float func() float64) AudioFeatures {
	a := archetypes[intn(len(archetypes))]
	pick := func(r [2]float64) float64 { return r[0] + float()*r[1] }
	return AudioFeatures{
		Volume:           pick(a.volume),
		Frequency:        pick(a.frequency),
		Pitch:            pick(a.pitch),
		SpectralCentroid: pick(a.centroid),
	}
}
