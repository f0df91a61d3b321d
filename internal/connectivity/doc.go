// Package connectivity tracks service reachability with an adaptive probe
// loop and triggers offline queue replay on the offline-to-online edge.
package connectivity
