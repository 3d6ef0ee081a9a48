// Package cli provides the interactive TillaPos command-line client.
//
// It wires configuration, the local database, the authenticated API client
// and the services into a REPL. Before each prompt the REPL checks whether
// the session was invalidated behind its back (a failed token refresh) and
// tells the user to sign in again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
