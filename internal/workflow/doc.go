// Package workflow runs the background job orchestrator: a worker pool
// that claims process / publish / cleanup jobs from the durable queue,
// drives the video lifecycle state machine, and persists one terminal
// outcome per dequeued job.
package workflow
