package protocol

import "errors"

var (
	ErrShortHeader     = errors.New("protocol: short header")
	ErrUnknownOp       = errors.New("protocol: unknown opcode")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrMessageTooLarge = errors.New("protocol: message too large")
	ErrTruncated       = errors.New("protocol: truncated payload")
	ErrTrailingBytes   = errors.New("protocol: trailing bytes after payload")
	ErrBufferTooSmall  = errors.New("protocol: buffer too small")
)
