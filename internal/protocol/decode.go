package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodeRequestHeader reads the fixed request header from the front of b.
// The opcode is not validated here; see ParseOp.
func DecodeRequestHeader(b []byte) (RequestHeader, error) {
	if len(b) < RequestHeaderSize {
		return RequestHeader{}, fmt.Errorf("%w: have %d want %d", ErrShortHeader, len(b), RequestHeaderSize)
	}
	return RequestHeader{
		Op:    Op(b[0]),
		Flags: b[1],
		ALen:  binary.LittleEndian.Uint16(b[2:4]),
		BLen:  binary.LittleEndian.Uint16(b[4:6]),
		CLen:  binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// DecodeResponseHeader reads the fixed response header from the front of b.
func DecodeResponseHeader(b []byte) (ResponseHeader, error) {
	if len(b) < ResponseHeaderSize {
		return ResponseHeader{}, fmt.Errorf("%w: have %d want %d", ErrShortHeader, len(b), ResponseHeaderSize)
	}
	return ResponseHeader{
		Status:    Status(b[0]),
		Reserved:  b[1],
		ResultLen: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}

// Request is a parsed request. Field slices alias the input buffer.
type Request struct {
	Header RequestHeader
	A      []byte
	B      []byte
	C      []byte
}

// SplitRequest decodes the header and partitions the payload into its three
// fields. The announced lengths must match the payload exactly.
func SplitRequest(b []byte) (Request, error) {
	if len(b) > MaxMessageSize {
		return Request{}, ErrMessageTooLarge
	}
	h, err := DecodeRequestHeader(b)
	if err != nil {
		return Request{}, err
	}
	if h.PayloadLen() > MaxPayloadSize {
		return Request{}, ErrPayloadTooLarge
	}
	payload := b[RequestHeaderSize:]
	switch {
	case len(payload) < h.PayloadLen():
		return Request{}, fmt.Errorf("%w: have %d want %d", ErrTruncated, len(payload), h.PayloadLen())
	case len(payload) > h.PayloadLen():
		return Request{}, fmt.Errorf("%w: %d", ErrTrailingBytes, len(payload)-h.PayloadLen())
	}
	a := int(h.ALen)
	ab := a + int(h.BLen)
	return Request{
		Header: h,
		A:      payload[:a:a],
		B:      payload[a:ab:ab],
		C:      payload[ab:],
	}, nil
}

// Result returns the result bytes announced by a response header, or
// ErrTruncated if the response is shorter than it claims.
func Result(resp []byte, h ResponseHeader) ([]byte, error) {
	end := ResponseHeaderSize + int(h.ResultLen)
	if len(resp) < end {
		return nil, fmt.Errorf("%w: have %d want %d", ErrTruncated, len(resp), end)
	}
	return resp[ResponseHeaderSize:end], nil
}
