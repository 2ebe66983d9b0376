// Package cli is the terminal client for the gotcha chat store.
//
// It wires configuration, the on-device SQLite store, the key store, the
// conversation repository, reminders, the notifier and the optional backup
// exporter into an App, and exposes the App through a cobra command tree.
// The "shell" command starts an interactive REPL with the same commands.
package cli
