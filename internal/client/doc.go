// Package client invokes crypto primitives hosted behind a channel handle.
//
// Every operation is one synchronous request/response exchange through a
// transport.Transactor. Inputs that cannot fit one message are rejected
// before the transport is touched. Responses are checked against the widths
// each algorithm fixes, and every failure comes back as a *Error whose Kind
// says who failed: the channel, the server, the response framing, the
// caller's buffers, or a signature check.
//
// Streaming digests use Begin, Session.Update and Session.Finish. The server
// allows one open session at a time and answers a second Begin with
// session busy; the client does not track sessions itself.
package client
