// Package api exposes speaker detection, transcription and caption management
// over HTTP using gin.
//
// Routes:
//
//	POST   /api/speakers/detect
//	POST   /api/videos/:id/transcribe
//	GET    /api/videos/:id/captions
//	GET    /api/videos/:id/captions/export?format=srt|vtt|ass
//	GET    /api/videos/:id/speakers
//	PATCH  /api/captions/:id
//	DELETE /api/captions/:id
//
// Every response uses the server package envelopes; errors are AppErrors.
package api
