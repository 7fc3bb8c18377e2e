// Package notifications posts run milestones to ntfy.
//
// NewService returns a no-op Service when no topic is configured, so callers
// never need to branch on whether notifications are enabled.
package notifications
