// Package ingest coordinates batches of image files through the validate,
// compress, and upload stages with a bounded concurrency window. Network
// failures divert compressed payloads to the offline queue rather than
// failing the file.
package ingest
