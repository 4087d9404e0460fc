// Package event derives short display events from sensor snapshots.
//
// Where the alert package tracks threshold breaches for notification, the
// event log feeds the dashboard's activity feed: one line per notable
// condition, deduplicated by category, capped at 20 entries.
package event
