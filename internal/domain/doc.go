// Package domain models water-level measurements and the events detected in them.
//
// # Data Source
//
// A series is a single gauge channel of water levels in meters, sampled at a
// nominal interval of one minute. Upstream collectors deliver it either as a
// CSV file (timestamp,level) or as a JSON analysis job on the Kafka source
// topic. Sampling is only roughly regular: receivers drop packets, loggers
// pause, and clocks drift.
//
// # Series Conventions
//
// Ordering:
//
//	Samples are sorted by timestamp before analysis. Ties are broken by level and
//	then by original index so that any permutation of the same input produces the
//	same sorted series. Duplicate timestamps are kept, not merged.
//
// Interpolated samples:
//
//	OriginalIndex = -1 marks a sample inserted by gap filling. Every other sample
//	carries its row number in the source.
//
// Alignment:
//
//	The four series of a Decomposition (original, detrended, residual, tidal) have
//	equal length and are aligned by index, not by timestamp lookup.
//
// Frequencies and periods:
//
//	Spectral frequencies are in cycles per minute and periods in minutes, both
//	derived from the nominal one-minute interval rather than measured spacing.
//
// # Events
//
// Events are immutable value records produced by the detectors. Properties is an
// ordered list of (name, value) pairs with numeric values only; categorical
// attributes are encoded as signed numbers (surge_type is +1 for a positive
// surge and -1 for a negative one).
//
// Confidence grades are ordinal: low < medium < high. See [Confidence.Rank].
//
// # ID Generation
//
// Event IDs are deterministic SHA-256 hashes of type|start|end|period|amplitude.
// Re-analysing the same series yields the same IDs, which keeps downstream
// upserts idempotent. Events that still collide, such as those raised by
// duplicate samples, are renamed by occurrence order. See [NewEventID] and
// [UniquifyIDs].
package domain
