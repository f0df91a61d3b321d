// Package compress re-encodes accepted images so uploads stay within the
// service's post-compression ceiling.
//
// Input formats are JPEG, PNG, GIF, and WebP (decode only). Output is JPEG:
// the longest side is capped, and the quality factor steps down until the
// encoded bytes fit the configured ceiling. Small GIFs bypass re-encoding so
// animations survive.
package compress
