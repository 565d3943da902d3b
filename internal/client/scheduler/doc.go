// Package scheduler decides when sync passes run.
//
// A Host is a named job queue with periodic and one-shot jobs, optionally
// gated on network availability. LocalHost is the in-process implementation
// used by the daemon; it retries jobs that ask for it with exponential
// backoff and cancels running attempts when the network goes away.
//
// SyncScheduler adapts the sync orchestrator to a Host. Every job it
// registers funnels through one single-flight group, so at most one pass
// runs at a time no matter how many triggers fire.
package scheduler
