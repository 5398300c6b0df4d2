// Package protocol owns the crypto channel wire contract.
//
// Ownership boundary:
// - opcode and status tables
// - fixed request/response header codec
// - request payload layout (field_a | field_b | field_c)
// - per-operation widths and message limits
package protocol
