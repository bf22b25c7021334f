// Package errors provides the error taxonomy shared by every pipeline
// component: configuration errors that stop a pipeline before it starts,
// execution errors recovered by retry, aggregated health-check errors,
// and delivery errors that are always swallowed by the notifier.
package errors
