// Package cli implements receipts-cli, the command-line client of the
// receipt store.
//
// Each invocation runs one command:
//
//	register                 create a staff account
//	login                    log in and keep the session locally
//	logout                   forget the local session
//	whoami                   print the logged-in username
//	upload <file.pdf> -order ID [-payment ID] [-bank NAME] [-account NO] [-meta k=v ...]
//	meta <id>                print receipt metadata
//	download <id> [-o path]  save the receipt PDF
//	link <id> [-o path]      print a direct download link, or fetch through it with -o
//	ping                     check that the server is reachable
//
// Tokens live in a local SQLite database. An expired access token is
// refreshed once and the command retried.
package cli
