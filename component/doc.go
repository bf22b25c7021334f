// Package component defines the lifecycle interface shared by the service's
// long-lived parts and a Registry that starts them in order and stops them
// in reverse.
package component
