// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op notifier unless notifications.ntfy_topic is set,
// so callers publish unconditionally. Delivery failures are returned to the
// caller to log; they never change a job's recorded status.
package notifications
