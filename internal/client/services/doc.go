// Package services contains the application services used by the CLI.
//
// Every mutation goes to the local store first, marked pending, and then
// asks the Trigger for a one-shot sync. Reads never touch the network.
package services
