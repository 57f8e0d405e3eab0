// Package validation checks request payloads before they reach the
// speaker engine or the caption store.
//
// Struct tags cover request bodies:
//
//	type SegmentRequest struct {
//	    Start float64 `json:"start" validate:"gte=0"`
//	    End   float64 `json:"end" validate:"gtefield=Start"`
//	}
//	err := validation.Validate(req)
//
// The programmatic Validator covers path and query parameters:
//
//	v := validation.New()
//	v.RequiredUUID("video_id", c.Param("id")).OneOf("format", format, []string{"srt", "ass"})
//	if err := v.Validate(); err != nil { ... }
//
// Both return *errors.AppError with code INVALID_INPUT and a "fields" detail.
package validation
