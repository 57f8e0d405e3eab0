// Package transcription turns an uploaded media file into time-stamped
// transcript segments and, optionally, speaker assignments.
//
// Service.Transcribe extracts a mono mp3 track with ffmpeg, enforces the
// backend upload limit, calls the selected speech-to-text Provider with
// retries and runs the speaker engine over the resulting segments. Backends
// register with a provider.Manager:
//
//	mgr := transcription.NewManager(transcription.WithPriority("whisper"))
//	mgr.Add(whisper.ProviderName, whisper.New(whisperCfg, client))
//	svc := transcription.NewService(cfg, mgr, toolkit, engine)
package transcription
