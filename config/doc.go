// Package config loads service configuration from a config.yml, an optional
// .env file and the process environment, in that order of precedence
// (environment wins).
//
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, so speaker.similarity_threshold is read from
// SPEAKER_SIMILARITY_THRESHOLD.
//
//	var cfg Config
//	if err := config.LoadConfig("captiond", &cfg); err != nil { ... }
package config
