// Package cli implements the socialmaster command-line client.
//
// Every command talks to the server through client.Client and prints its
// result as indented JSON on stdout. Batch generation additionally reports
// progress lines on stderr while the stream is open.
//
// Connection settings come from config.LoadConfig and can be overridden
// with the persistent --addr, --token and --timeout flags.
package cli
