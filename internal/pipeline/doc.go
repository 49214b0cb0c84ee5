// Package pipeline runs the per-file scan stages and fans them out over a
// bounded worker pool.
//
// A Pipeline executes Steps in order against one model.Record: extraction
// fills in the outcome and filtering drops excluded libraries. A
// BatchProcessor runs a fresh pipeline for each input path concurrently
// and returns the records in input order, so output stays deterministic
// no matter which file finishes first.
package pipeline
