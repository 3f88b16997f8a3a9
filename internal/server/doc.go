// Package server implements the TCP front end: one listener, one
// goroutine per connection, each connection served as a strictly
// sequential request/response loop over internal/wire frames dispatched
// against an internal/store.Table.
//
// Shutdown is cooperative: Server.Serve returns once its context is
// canceled and every in-flight connection handler has drained its
// current request. No new connections are accepted once shutdown
// begins, and accepted-but-unfinished requests are allowed to complete
// rather than severed mid-write.
package server
