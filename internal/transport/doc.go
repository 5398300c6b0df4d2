// Package transport owns the request/response channel the crypto client
// talks through.
//
// Ownership boundary:
// - the Transactor contract consumed by package client
// - the Handler contract implemented by package server
// - an in-process loopback channel
// - a framed stream channel over tcp/unix sockets, optionally TLS
//
// A transact is one request and one response. Nothing here pipelines,
// retries or times out on its own; deadlines come from the caller's context.
package transport
