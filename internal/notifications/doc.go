// Package notifications delivers upload milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Batch, sync, and error events can be toggled independently so a
// user running interactive uploads is not pinged about work they watched
// happen.
//
// Extend this package if you need alternative transports; all upload code
// depends only on the simple Service interface.
package notifications
