// Package scheduler triggers pipeline runs from a cron schedule and on
// demand.
//
// At most one run is active at a time. A trigger that arrives while a run is
// in progress fails with RUN_ALREADY_ACTIVE; a cron tick in that situation is
// logged and dropped, and missed ticks are never replayed. Finished runs are
// kept in a bounded in-memory history and, with WithStore, mirrored into a
// persistent Store such as database.RunStore.
package scheduler
