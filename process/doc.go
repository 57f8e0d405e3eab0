// Package process runs external binaries (ffmpeg, ffprobe) with captured
// output, process-group cancellation and an optional resilience chain.
package process
