// Package pipeline runs the background conversion workers. Workers
// claim pending records through the facade, invoke the converter with
// a per-job deadline, and report the outcome back to the catalog.
// At most one job runs per slug; the worker count bounds total
// parallelism.
package pipeline
