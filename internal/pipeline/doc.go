// Package pipeline runs the audit of one fragment file as a sequence of
// steps: load the fragments, audit them, store the result.
//
// Each step receives the DocumentAudit being built and fills in its part.
// A BatchProcessor runs one pipeline per input file with bounded
// concurrency using errgroup.
package pipeline
