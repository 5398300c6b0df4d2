// Package server is the reference crypto service behind a channel handle.
//
// A Server answers one request at a time: it splits the request into its
// three fields, runs the opcode against a Backend and encodes the result or
// the failure status. It holds at most one streaming hash session.
package server
