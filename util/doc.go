// Package util holds small generic helpers shared by the config layers:
// pointer defaults, first-non-zero selection, byte sizes and secret masking
// for logs.
package util
