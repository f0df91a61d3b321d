// Package upload implements the HTTP transport to the Cantrip service. The
// client distinguishes transport failures, which are candidates for offline
// queueing, from completed exchanges, which always produce a Response.
package upload
