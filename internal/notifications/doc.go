// Package notifications pushes operator-facing events (video received,
// processing done, publish done, errors) to an ntfy topic when one is
// configured, and silently drops them otherwise.
package notifications
