// Package caption turns transcription and speaker attribution results into
// stored on-screen captions.
//
// FromDetection colours and labels each caption by speaker; FromSegments maps
// plain transcript segments. Captions are persisted through a Store (GormStore
// in production) and the raw detection result for a video can be kept in a
// ResultCache backed by Redis.
package caption
