// Package health implements the post-run gate: a list of named count
// probes run against the warehouse, judged PASS or FAIL and aggregated so
// a single report carries every failure.
//
// Row count checks pass on a positive count. Orphan checks count records
// that break referential integrity and pass only on zero. A probe that
// cannot run fails its check with the error text and evaluation moves on
// to the next check.
package health
