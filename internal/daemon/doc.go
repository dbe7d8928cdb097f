// Package daemon coordinates the long-running process: single-instance
// locking, the job orchestrator, and the HTTP API that ingests uploads
// and exposes queue state.
package daemon
