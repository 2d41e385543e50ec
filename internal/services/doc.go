// Package services implements the business logic layer of the results
// viewer. It sits between the HTTP handlers and the pipeline: RunService
// owns run lifecycle (trigger, single-flight, status), ResultsService reads
// the artifacts a completed run left on disk.
//
// Services take their collaborators through constructors, propagate
// context, and return errors from the internal/errors taxonomy so handlers
// can map them to problem responses without inspecting messages.
package services
