// Package normalisers provides implementations of the Normaliser interface
// for text formats. Each normaliser turns decoded input of one MIME type
// into document text the segmentation engine can split.
//
// Normalisers are registered with a Registry at startup.
package normalisers
