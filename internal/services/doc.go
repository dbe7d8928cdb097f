// Package services provides the shared error taxonomy and context
// helpers used by pipeline components and the job orchestrator.
package services
