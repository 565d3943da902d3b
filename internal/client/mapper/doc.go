// Package mapper translates between the three shapes of budgets and
// transactions: the wire form exchanged with the remote, the record form kept
// by the local store, and the domain form handed to services.
//
// All functions are pure. Timestamps go through ParseTime, which tries a
// fixed chain of layouts and fails instead of guessing; enum strings are
// normalized and unknown values fall back to a defined member.
package mapper
