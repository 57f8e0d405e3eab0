// Package speaker attributes transcript segments to speakers without a
// speaker-embedding model.
//
// Each segment gets a small acoustic fingerprint (AudioFeatures) from a
// FeatureProvider. Segments are then clustered in order against running
// speaker profiles, with lexical cues and pause reasoning steering the
// decision. Short single-segment interruptions are smoothed away and ids are
// renumbered densely by first appearance.
//
// Feature extraction degrades per segment to SyntheticProvider output, and
// the whole pipeline degrades to a single-speaker result, so DetectSpeakers
// never fails:
//
//	engine, err := speaker.NewEngine(speaker.DefaultConfig(),
//	    speaker.WithProvider(ffmpeg.New(ffCfg, runner)),
//	    speaker.WithMetrics(metrics),
//	)
//	res := engine.DetectSpeakers(ctx, "/tmp/audio.wav", segments)
package speaker
