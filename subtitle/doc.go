// Package subtitle renders stored captions as SRT, WebVTT or ASS files.
//
// SRT and ASS output start with a UTF-8 byte order mark so that players on
// Windows pick the right encoding for Japanese text. ASS output carries one
// style per caption so per-speaker colours and backgrounds survive burn-in.
package subtitle
