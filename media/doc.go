// Package media wraps the ffmpeg and ffprobe invocations the service needs:
// pulling an audio track out of an upload, probing its duration, cutting
// short clips for feature measurement and reading the mean volume of a clip.
//
// Every call goes through a process.Executor, normally a process.Runner with
// a circuit breaker, so a missing or broken ffmpeg fails fast.
package media
