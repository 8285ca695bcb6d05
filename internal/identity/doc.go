// Package identity derives stable identifiers from image files: an exact
// content fingerprint (SHA-256 of the file bytes), a perceptual difference
// hash for near-duplicate spotting, and the EXIF capture timestamp when the
// file carries one.
//
// The fingerprint is the primary key everywhere else in winnow; identical
// bytes yield the identical fingerprint regardless of file name or location.
package identity
