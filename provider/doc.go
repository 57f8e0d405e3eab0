// Package provider defines swappable backends behind a small generic
// interface, with a registry/manager for runtime selection and composable
// middleware for logging, metrics, tracing and resilience.
//
// Feature extraction and transcription are both RequestResponse providers:
//
//	features := provider.Chain(
//	    provider.WithLogging[speaker.Clip, speaker.AudioFeatures](log),
//	    provider.WithTracing[speaker.Clip, speaker.AudioFeatures]("speaker"),
//	)(ffmpeg.New(cfg, runner))
//
// Backends are registered by name and selected through a Manager:
//
//	reg := provider.NewRegistry[transcription.Provider]()
//	mgr := provider.NewManager(reg, &provider.PrioritySelector[transcription.Provider]{Priority: []string{"whisper"}})
package provider
