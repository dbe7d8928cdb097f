// Package queue persists videos, niches, background jobs, and the
// processing audit log in SQLite and provides the claim/heartbeat
// primitives the job orchestrator builds on.
package queue
