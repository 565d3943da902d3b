// Package cli provides the finny command-line client.
//
// Every command opens the local store, runs against it and exits; edits are
// written locally first and a background sync pass is queued. The daemon
// command keeps a recurring pass registered until interrupted.
//
//	finny budget add --name Groceries --limit 400 --period 1_month
//	finny tx add --budget <id> --name Bread --amount 2.40 --type OUTCOME --category FOOD
//	finny sync
//	finny daemon --sync-interval 30m
package cli
