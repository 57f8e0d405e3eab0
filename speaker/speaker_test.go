package speaker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/provider"
)

var (
	voiceA = AudioFeatures{Volume: 0.5, Frequency: 200, Pitch: 150, SpectralCentroid: 1000}
	voiceB = AudioFeatures{Volume: 0.9, Frequency: 600, Pitch: 500, SpectralCentroid: 3500}
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// fixedProvider returns features[clip.Index].
func fixedProvider(features ...AudioFeatures) FeatureProvider {
	return provider.Func("fixed", func(_ context.Context, c Clip) (AudioFeatures, error) {
		return features[c.Index], nil
	})
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithSynthetic(NewSeededSyntheticProvider(7))}, opts...)
	e, err := NewEngine(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func assertDense(t *testing.T, res *Result, n int) {
	t.Helper()
	if len(res.Segments) != n {
		t.Fatalf("got %d segments, want %d", len(res.Segments), n)
	}
	seen := map[int]bool{}
	next := 1
	for i, s := range res.Segments {
		if !seen[s.SpeakerID] {
			if s.SpeakerID != next {
				t.Fatalf("segment %d: first appearance of id %d, want %d", i, s.SpeakerID, next)
			}
			seen[s.SpeakerID] = true
			next++
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Errorf("segment %d: confidence %v out of range", i, s.Confidence)
		}
	}
	if res.SpeakerCount != len(seen) || len(res.SpeakerProfiles) != len(seen) {
		t.Errorf("count=%d profiles=%d distinct=%d", res.SpeakerCount, len(res.SpeakerProfiles), len(seen))
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b AudioFeatures
		want float64
	}{
		{"identical", voiceA, voiceA, 1},
		{"volume only", voiceA, AudioFeatures{Volume: 1.0, Frequency: 200, Pitch: 150, SpectralCentroid: 1000}, 0.6},
		{"frequency only", voiceA, AudioFeatures{Volume: 0.5, Frequency: 600, Pitch: 150, SpectralCentroid: 1000}, 0.4},
		{"far apart floors at zero", AudioFeatures{}, AudioFeatures{Volume: 1, Frequency: 1000, Pitch: 1000, SpectralCentroid: 8000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); !near(got, tt.want) {
				t.Errorf("Similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLexicalClassify(t *testing.T) {
	c := NewLexicalClassifier(DefaultLexicalPatterns())
	tests := []struct {
		name  string
		text  string
		index int
		want  int
	}{
		{"even index list one", "はい、そうですね", 0, 1},
		{"odd index list two", "うんうん、そうそう", 1, 2},
		{"list two on even index falls through to scan", "うん", 0, 2},
		{"list one on odd index falls through to scan", "なるほど", 3, 1},
		{"list three", "まあ難しい", 4, 3},
		{"earlier list wins the scan", "やっぱりちょっと難しいですね", 2, 2},
		{"no marker", "今日は晴れ", 0, 0},
		{"empty", "", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text, tt.index); got != tt.want {
				t.Errorf("Classify(%q, %d) = %d, want %d", tt.text, tt.index, got, tt.want)
			}
		})
	}
}

func TestLexicalClassifyCaseInsensitive(t *testing.T) {
	c := NewLexicalClassifier([][]string{{"Right"}, {"yeah"}})
	if got := c.Classify("RIGHT, ok", 0); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := c.Classify("Yeah", 0); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	var nilClassifier *LexicalClassifier
	if got := nilClassifier.Classify("yeah", 1); got != 0 {
		t.Errorf("nil classifier returned %d", got)
	}
}

func TestClusterJoinsAndUpdatesProfile(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClusterer(cfg, nil)
	state := &ClusterState{}
	second := voiceA
	second.Volume = 0.6

	segs := []TranscriptSegment{{Start: 0, End: 2}, {Start: 2, End: 4}}
	out, err := c.ClusterWith(state, []AudioFeatures{voiceA, second}, segs)
	if err != nil {
		t.Fatalf("ClusterWith: %v", err)
	}
	if out[0].SpeakerID != 1 || !near(out[0].Confidence, 0.6) {
		t.Errorf("first segment = %d@%v, want 1@0.6", out[0].SpeakerID, out[0].Confidence)
	}
	if out[1].SpeakerID != 1 || !near(out[1].Confidence, 0.92) {
		t.Errorf("second segment = %d@%v, want 1@0.92", out[1].SpeakerID, out[1].Confidence)
	}
	if len(state.Profiles) != 1 || !near(state.Profiles[0].Volume, 0.53) {
		t.Errorf("profiles = %+v, want one with volume 0.53", state.Profiles)
	}
}

func TestClusterSimilarityThreshold(t *testing.T) {
	tests := []struct {
		name      string
		deltaFreq float64
		wantID    int
	}{
		{"just above threshold joins", 390, 1},
		{"just below threshold splits", 410, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := voiceA
			other.Frequency += tt.deltaFreq
			out, err := NewClusterer(DefaultConfig(), nil).Cluster(
				[]AudioFeatures{voiceA, other},
				[]TranscriptSegment{{Start: 0, End: 1}, {Start: 1, End: 2}},
			)
			if err != nil {
				t.Fatal(err)
			}
			if out[1].SpeakerID != tt.wantID {
				t.Errorf("got speaker %d, want %d", out[1].SpeakerID, tt.wantID)
			}
		})
	}
}

func TestClusterPauseAndVolumeJump(t *testing.T) {
	t.Run("identical voice after pause still joins", func(t *testing.T) {
		out, _ := NewClusterer(DefaultConfig(), nil).Cluster(
			[]AudioFeatures{voiceA, voiceA},
			[]TranscriptSegment{{Start: 0, End: 2}, {Start: 5, End: 6}},
		)
		if out[1].SpeakerID != 1 || !near(out[1].Confidence, 0.6) {
			t.Errorf("got %d@%v, want 1@0.6", out[1].SpeakerID, out[1].Confidence)
		}
	})
	t.Run("pause with a similar voice splits", func(t *testing.T) {
		similar := voiceA
		similar.Frequency += 40
		out, _ := NewClusterer(DefaultConfig(), nil).Cluster(
			[]AudioFeatures{voiceA, similar},
			[]TranscriptSegment{{Start: 0, End: 2}, {Start: 5, End: 6}},
		)
		if out[1].SpeakerID != 2 {
			t.Errorf("got speaker %d, want 2", out[1].SpeakerID)
		}
	})
	t.Run("pause, volume jump and different voice", func(t *testing.T) {
		out, _ := NewClusterer(DefaultConfig(), nil).Cluster(
			[]AudioFeatures{voiceA, voiceB},
			[]TranscriptSegment{{Start: 0, End: 2}, {Start: 4, End: 6}},
		)
		if out[1].SpeakerID != 2 || !near(out[1].Confidence, 0.6) {
			t.Errorf("got %d@%v, want 2@0.6", out[1].SpeakerID, out[1].Confidence)
		}
	})
}

func TestClusterLexicalLeavesProfilesAlone(t *testing.T) {
	c := NewClusterer(DefaultConfig(), NewLexicalClassifier(DefaultLexicalPatterns()))
	state := &ClusterState{}
	out, err := c.ClusterWith(state, []AudioFeatures{voiceA}, []TranscriptSegment{{Start: 0, End: 1, Text: "はい"}})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].SpeakerID != 1 || !near(out[0].Confidence, 0.8) {
		t.Errorf("got %d@%v, want 1@0.8", out[0].SpeakerID, out[0].Confidence)
	}
	if len(state.Profiles) != 0 {
		t.Errorf("lexical assignment created profiles: %+v", state.Profiles)
	}
}

func TestClusterLexicalOverridesMatchingProfile(t *testing.T) {
	c := NewClusterer(DefaultConfig(), NewLexicalClassifier(DefaultLexicalPatterns()))
	state := &ClusterState{}
	out, err := c.ClusterWith(state,
		[]AudioFeatures{voiceA, voiceB, voiceB},
		[]TranscriptSegment{
			{Start: 0, End: 1, Text: "x"},
			{Start: 3, End: 4, Text: "x"},
			{Start: 4, End: 5, Text: "はい、わかりました"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(out); !equalInts(got, []int{1, 2, 1}) {
		t.Fatalf("ids = %v, want [1 2 1]", got)
	}
	if !near(out[2].Confidence, 0.8) {
		t.Errorf("lexical confidence = %v, want 0.8", out[2].Confidence)
	}
	if len(state.Profiles) != 2 || state.Profiles[0] != voiceA || state.Profiles[1] != voiceB {
		t.Errorf("profiles changed by a lexical assignment: %+v", state.Profiles)
	}
}

func TestClusterTurnCueBoundaries(t *testing.T) {
	quieter := voiceA
	quieter.Volume = 0.3
	quietest := voiceA
	quietest.Volume = 0.29
	tests := []struct {
		name     string
		second   AudioFeatures
		gapStart float64
		wantID   int
		wantConf float64
	}{
		// 0.84 = 1 - 2*0.2/2.5, unpenalised
		{"gap of exactly the pause threshold", voiceA, 2.0, 1, 1.0},
		{"gap just above the pause threshold", voiceA, 2.01, 1, 0.6},
		{"volume change of exactly the jump threshold", quieter, 1.0, 1, 0.84},
		{"volume change just above the jump threshold", quietest, 1.0, 2, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewClusterer(DefaultConfig(), nil).Cluster(
				[]AudioFeatures{voiceA, tt.second},
				[]TranscriptSegment{{Start: 0, End: 1}, {Start: tt.gapStart, End: tt.gapStart + 1}},
			)
			if err != nil {
				t.Fatal(err)
			}
			if out[1].SpeakerID != tt.wantID || !near(out[1].Confidence, tt.wantConf) {
				t.Errorf("got %d@%v, want %d@%v", out[1].SpeakerID, out[1].Confidence, tt.wantID, tt.wantConf)
			}
		})
	}
}

func TestClusterZeroThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PauseThreshold = 0
	cfg.SimilarityThreshold = 0
	e, err := NewEngine(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Config(); got.PauseThreshold != 0 || got.SimilarityThreshold != 0 {
		t.Fatalf("zero thresholds replaced by defaults: %+v", got)
	}

	// Any gap is a pause now: identical voices join at the penalised 0.6.
	out, err := NewClusterer(e.Config(), nil).Cluster(
		[]AudioFeatures{voiceA, voiceA},
		[]TranscriptSegment{{Start: 0, End: 1}, {Start: 1.1, End: 2}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if out[1].SpeakerID != 1 || !near(out[1].Confidence, 0.6) {
		t.Errorf("got %d@%v, want 1@0.6", out[1].SpeakerID, out[1].Confidence)
	}

	var literal Config
	literal.ApplyDefaults()
	if literal.PauseThreshold != 1.0 || literal.SimilarityThreshold != 0.4 {
		t.Errorf("zero literal not defaulted: %+v", literal)
	}
}

func TestClusterLengthMismatch(t *testing.T) {
	_, err := NewClusterer(DefaultConfig(), nil).Cluster([]AudioFeatures{voiceA}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func speakerSegs(ids []int, durations []float64) []SpeakerSegment {
	out := make([]SpeakerSegment, len(ids))
	start := 0.0
	for i, id := range ids {
		out[i] = SpeakerSegment{
			TranscriptSegment: TranscriptSegment{Start: start, End: start + durations[i]},
			SpeakerID:         id,
			Confidence:        0.9,
		}
		start += durations[i]
	}
	return out
}

func ids(segs []SpeakerSegment) []int {
	out := make([]int, len(segs))
	for i, s := range segs {
		out[i] = s.SpeakerID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSmooth(t *testing.T) {
	tests := []struct {
		name      string
		ids       []int
		durations []float64
		want      []int
	}{
		{"short blip folded", []int{1, 2, 1}, []float64{3, 1, 3}, []int{1, 1, 1}},
		{"long interruption kept", []int{1, 2, 1}, []float64{3, 2, 3}, []int{1, 2, 1}},
		{"two segments untouched", []int{1, 2}, []float64{1, 1}, []int{1, 2}},
		{"edges untouched", []int{2, 1, 1, 2}, []float64{1, 1, 1, 1}, []int{2, 1, 1, 2}},
		{"decisions use original ids", []int{1, 2, 1, 2, 1}, []float64{1, 1, 1, 1, 1}, []int{1, 1, 2, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := speakerSegs(tt.ids, tt.durations)
			got := Smooth(in, DefaultConfig())
			if !equalInts(ids(got), tt.want) {
				t.Errorf("Smooth ids = %v, want %v", ids(got), tt.want)
			}
			if !equalInts(ids(in), tt.ids) {
				t.Errorf("input mutated: %v", ids(in))
			}
		})
	}
}

func TestSmoothCapsConfidence(t *testing.T) {
	got := Smooth(speakerSegs([]int{1, 2, 1}, []float64{3, 1, 3}), DefaultConfig())
	if !near(got[1].Confidence, 0.6) {
		t.Errorf("confidence = %v, want 0.6", got[1].Confidence)
	}
	if !near(got[0].Confidence, 0.9) {
		t.Errorf("unchanged segment confidence = %v", got[0].Confidence)
	}
}

func TestNormalize(t *testing.T) {
	in := speakerSegs([]int{3, 1, 3, 7}, []float64{1, 1, 1, 1})
	got := Normalize(in)
	if want := []int{1, 2, 1, 3}; !equalInts(ids(got), want) {
		t.Errorf("Normalize ids = %v, want %v", ids(got), want)
	}
	if in[0].SpeakerID != 3 {
		t.Error("input mutated")
	}
}

func TestAggregate(t *testing.T) {
	segs := []SpeakerSegment{
		{SpeakerID: 2, Confidence: 0.6, Features: AudioFeatures{Volume: 0.4, Pitch: 100, Frequency: 200}},
		{SpeakerID: 1, Confidence: 1.0, Features: AudioFeatures{Volume: 0.8, Pitch: 300, Frequency: 100}},
		{SpeakerID: 2, Confidence: 0.8, Features: AudioFeatures{Volume: 0.6, Pitch: 200, Frequency: 400}},
	}
	got := Aggregate(segs)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("profiles = %+v", got)
	}
	p := got[0]
	if !near(p.AvgVolume, 0.5) || !near(p.AvgPitch, 150) || !near(p.AvgFrequency, 300) || !near(p.Confidence, 0.7) {
		t.Errorf("profile = %+v", p)
	}
}

func TestDetectSpeakersEmpty(t *testing.T) {
	res := newTestEngine(t).DetectSpeakers(context.Background(), "audio.wav", nil)
	if res.SpeakerCount != 0 || res.Segments == nil || len(res.Segments) != 0 || res.SpeakerProfiles == nil {
		t.Errorf("empty result = %+v", res)
	}
}

func TestDetectSpeakersSingleSegment(t *testing.T) {
	res := newTestEngine(t, WithProvider(fixedProvider(voiceA))).
		DetectSpeakers(context.Background(), "audio.wav", []TranscriptSegment{{Start: 0, End: 2, Text: "hello"}})
	assertDense(t, res, 1)
	if res.Segments[0].SpeakerID != 1 || res.SpeakerCount != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestDetectSpeakersPreservesOrder(t *testing.T) {
	segs := make([]TranscriptSegment, 25)
	for i := range segs {
		segs[i] = TranscriptSegment{Start: float64(i) * 2, End: float64(i)*2 + 1.5, Text: string(rune('a' + i))}
	}
	res := newTestEngine(t).DetectSpeakers(context.Background(), "", segs)
	assertDense(t, res, len(segs))
	for i, s := range res.Segments {
		if s.TranscriptSegment != segs[i] {
			t.Errorf("segment %d = %+v, want %+v", i, s.TranscriptSegment, segs[i])
		}
	}
}

func TestDetectSpeakersBlipSmoothing(t *testing.T) {
	segs := []TranscriptSegment{
		{Start: 0, End: 3, Text: "a"},
		{Start: 3, End: 4, Text: "b"},
		{Start: 4, End: 7, Text: "c"},
	}
	res := newTestEngine(t, WithProvider(fixedProvider(voiceA, voiceB, voiceA))).
		DetectSpeakers(context.Background(), "audio.wav", segs)
	assertDense(t, res, 3)
	if got := ids(res.Segments); !equalInts(got, []int{1, 1, 1}) {
		t.Errorf("ids = %v, want [1 1 1]", got)
	}
	if res.Segments[1].Confidence > 0.6 {
		t.Errorf("smoothed confidence = %v", res.Segments[1].Confidence)
	}
}

func TestDetectSpeakersForcedNewSpeaker(t *testing.T) {
	segs := []TranscriptSegment{{Start: 0, End: 2, Text: "a"}, {Start: 4, End: 6, Text: "b"}}
	res := newTestEngine(t, WithProvider(fixedProvider(voiceA, voiceB))).
		DetectSpeakers(context.Background(), "audio.wav", segs)
	assertDense(t, res, 2)
	if res.SpeakerCount != 2 || res.Segments[1].SpeakerID != 2 {
		t.Errorf("ids = %v", ids(res.Segments))
	}
}

func TestDetectSpeakersJapaneseConversation(t *testing.T) {
	segs := []TranscriptSegment{
		{Start: 0, End: 2, Text: "はい、そうですね"},
		{Start: 2, End: 4, Text: "うんうん、そうそう"},
		{Start: 5.5, End: 7, Text: "やっぱりちょっと難しいですね"},
	}
	res := newTestEngine(t).DetectSpeakers(context.Background(), "", segs)
	assertDense(t, res, 3)
	if res.SpeakerCount < 2 {
		t.Errorf("speaker count = %d, want >= 2", res.SpeakerCount)
	}
	if res.Segments[0].SpeakerID != 1 || res.Segments[1].SpeakerID != 2 {
		t.Errorf("ids = %v, want [1 2 ...]", ids(res.Segments))
	}
	if !near(res.Segments[0].Confidence, 0.8) {
		t.Errorf("lexical confidence = %v", res.Segments[0].Confidence)
	}
}

func TestDetectSpeakersProviderFailures(t *testing.T) {
	segs := []TranscriptSegment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2, Text: "b"},
		{Start: 2, End: 2, Text: "empty"},
		{Start: 3, End: 4, Text: "d"},
	}
	tests := []struct {
		name string
		fn   func(context.Context, Clip) (AudioFeatures, error)
	}{
		{"always errors", func(context.Context, Clip) (AudioFeatures, error) {
			return AudioFeatures{}, errors.New("ffmpeg not found")
		}},
		{"panics", func(context.Context, Clip) (AudioFeatures, error) { panic("boom") }},
		{"returns NaN", func(context.Context, Clip) (AudioFeatures, error) {
			return AudioFeatures{Volume: math.NaN()}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithProvider(provider.Func("broken", tt.fn)))
			res := e.DetectSpeakers(context.Background(), "audio.wav", segs)
			assertDense(t, res, len(segs))
		})
	}
}

func TestFeatureExtractorFallbackPerSegment(t *testing.T) {
	var calls atomic.Int32
	p := provider.Func("half", func(_ context.Context, c Clip) (AudioFeatures, error) {
		calls.Add(1)
		if c.Index%2 == 1 {
			return AudioFeatures{}, errors.New("decode failed")
		}
		return AudioFeatures{Volume: 0.5, Frequency: 100 + float64(c.Index), Pitch: 90, SpectralCentroid: 250}, nil
	})
	cfg := DefaultConfig()
	x := NewFeatureExtractor(p, NewSeededSyntheticProvider(1), cfg, logger.Nop(), nil)

	segs := make([]TranscriptSegment, 6)
	for i := range segs {
		segs[i] = TranscriptSegment{Start: float64(i), End: float64(i) + 1}
	}
	got := x.Extract(context.Background(), "a.wav", segs)
	if len(got) != len(segs) {
		t.Fatalf("got %d features", len(got))
	}
	for i, f := range got {
		if i%2 == 0 && f.Frequency != 100+float64(i) {
			t.Errorf("segment %d: frequency %v, want %v", i, f.Frequency, 100+float64(i))
		}
		if i%2 == 1 && f.SpectralCentroid < 800 {
			t.Errorf("segment %d: expected synthetic features, got %+v", i, f)
		}
	}
	if calls.Load() != int32(len(segs)) {
		t.Errorf("provider called %d times", calls.Load())
	}
}

func TestFeatureExtractorBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := provider.Func("slow", func(ctx context.Context, c Clip) (AudioFeatures, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return voiceA, nil
	})
	cfg := DefaultConfig()
	cfg.MaxConcurrency = 2
	x := NewFeatureExtractor(p, nil, cfg, logger.Nop(), nil)

	segs := make([]TranscriptSegment, 10)
	for i := range segs {
		segs[i] = TranscriptSegment{Start: float64(i), End: float64(i) + 1}
	}
	x.Extract(context.Background(), "a.wav", segs)
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d, want <= 2", peak.Load())
	}
}

func TestFeatureExtractorTimeout(t *testing.T) {
	p := provider.Func("hang", func(ctx context.Context, c Clip) (AudioFeatures, error) {
		<-ctx.Done()
		return AudioFeatures{}, ctx.Err()
	})
	cfg := DefaultConfig()
	cfg.SegmentTimeout = 10 * time.Millisecond
	x := NewFeatureExtractor(p, NewSeededSyntheticProvider(3), cfg, logger.Nop(), nil)

	got := x.Extract(context.Background(), "a.wav", []TranscriptSegment{{Start: 0, End: 1}})
	if got[0].Volume < 0.45 || got[0].Volume > 0.85 {
		t.Errorf("expected synthetic features, got %+v", got[0])
	}
}

func TestSyntheticProvider(t *testing.T) {
	a, b := NewSeededSyntheticProvider(42), NewSeededSyntheticProvider(42)
	for i := 0; i < 200; i++ {
		fa, fb := a.Generate(), b.Generate()
		if fa != fb {
			t.Fatalf("draw %d differs for the same seed: %+v vs %+v", i, fa, fb)
		}
		if !fitsArchetype(fa) {
			t.Fatalf("draw %d outside every archetype: %+v", i, fa)
		}
	}
	f, err := NewSyntheticProvider().Execute(context.Background(), Clip{})
	if err != nil || !fitsArchetype(f) {
		t.Errorf("Execute = %+v, %v", f, err)
	}
}

func fitsArchetype(f AudioFeatures) bool {
	in := func(v float64, r [2]float64) bool { return v >= r[0] && v <= r[0]+r[1] }
	for _, a := range archetypes {
		if in(f.Volume, a.volume) && in(f.Frequency, a.frequency) && in(f.Pitch, a.pitch) && in(f.SpectralCentroid, a.centroid) {
			return true
		}
	}
	return false
}

func TestSingleSpeakerResult(t *testing.T) {
	res := SingleSpeakerResult([]TranscriptSegment{{Start: 0, End: 1}, {Start: 1, End: 2}})
	if res.SpeakerCount != 1 || len(res.SpeakerProfiles) != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, s := range res.Segments {
		if s.SpeakerID != 1 || s.Confidence != 0.5 || s.Features != fallbackFeatures {
			t.Errorf("segment = %+v", s)
		}
	}
	want := SpeakerProfile{ID: 1, AvgVolume: 0.5, AvgPitch: 150, AvgFrequency: 200, Confidence: 0.5}
	if res.SpeakerProfiles[0] != want {
		t.Errorf("profile = %+v", res.SpeakerProfiles[0])
	}
}

type failingStage struct{ panics bool }

func (f failingStage) Cluster([]AudioFeatures, []TranscriptSegment) ([]SpeakerSegment, error) {
	if f.panics {
		panic("index out of range")
	}
	return nil, errors.New("cluster state corrupted")
}

func TestDetectSpeakersFallsBackToSingleSpeaker(t *testing.T) {
	segs := []TranscriptSegment{
		{Start: 0, End: 1, Text: "はい"},
		{Start: 1, End: 2, Text: "うん"},
		{Start: 4, End: 5, Text: "x"},
	}
	for _, stage := range []failingStage{{panics: false}, {panics: true}} {
		t.Run(fmt.Sprintf("panics=%v", stage.panics), func(t *testing.T) {
			e := newTestEngine(t, WithProvider(fixedProvider(voiceA, voiceB, voiceA)))
			e.clusterer = stage

			res := e.DetectSpeakers(context.Background(), "audio.wav", segs)
			if res.SpeakerCount != 1 || len(res.SpeakerProfiles) != 1 || len(res.Segments) != len(segs) {
				t.Fatalf("result = %+v", res)
			}
			for i, s := range res.Segments {
				if s.SpeakerID != 1 || s.Confidence != 0.5 || s.Features != fallbackFeatures {
					t.Errorf("segment %d = %+v", i, s)
				}
				if s.TranscriptSegment != segs[i] {
					t.Errorf("segment %d lost its input: %+v", i, s.TranscriptSegment)
				}
			}
		})
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PauseThreshold != 1.0 || cfg.LearningRate != 0.3 || cfg.MaxConcurrency != 4 || cfg.SegmentTimeout != 30*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if len(cfg.LexicalPatterns) != 3 {
		t.Errorf("lexical patterns = %v", cfg.LexicalPatterns)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate defaults: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.LexicalConfidence = 1.5 }},
		{"negative pause", func(c *Config) { c.PauseThreshold = -1 }},
		{"empty pattern", func(c *Config) { c.LexicalPatterns = [][]string{{"はい", " "}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
			if _, err := NewEngine(c); err == nil {
				t.Error("NewEngine accepted an invalid config")
			}
		})
	}
}
