package protocol

import "encoding/binary"

// RequestHeader is the fixed header at the start of every request.
//
// The three lengths partition the payload that follows the header. Their
// meaning is opcode dependent: key/nonce/data for MAC and AEAD, public
// key/signature/message for verify, private key/message for sign.
type RequestHeader struct {
	Op    Op
	Flags uint8
	ALen  uint16
	BLen  uint16
	CLen  uint16
}

// PayloadLen is the byte count announced by the three length fields.
func (h RequestHeader) PayloadLen() int {
	return int(h.ALen) + int(h.BLen) + int(h.CLen)
}

// Put writes h into the first RequestHeaderSize bytes of b.
func (h RequestHeader) Put(b []byte) {
	_ = b[RequestHeaderSize-1]
	b[0] = byte(h.Op)
	b[1] = h.Flags
	binary.LittleEndian.PutUint16(b[2:4], h.ALen)
	binary.LittleEndian.PutUint16(b[4:6], h.BLen)
	binary.LittleEndian.PutUint16(b[6:8], h.CLen)
}

// Encode returns the wire form of h.
func (h RequestHeader) Encode() []byte {
	buf := make([]byte, RequestHeaderSize)
	h.Put(buf)
	return buf
}

// ResponseHeader is the fixed header at the start of every response.
type ResponseHeader struct {
	Status    Status
	Reserved  uint8
	ResultLen uint16
}

// Put writes h into the first ResponseHeaderSize bytes of b.
func (h ResponseHeader) Put(b []byte) {
	_ = b[ResponseHeaderSize-1]
	b[0] = byte(h.Status)
	b[1] = h.Reserved
	binary.LittleEndian.PutUint16(b[2:4], h.ResultLen)
}

func (h ResponseHeader) Encode() []byte {
	buf := make([]byte, ResponseHeaderSize)
	h.Put(buf)
	return buf
}

// EncodeRequest lays out header and fields into dst and returns the used prefix.
// Fields are written in a, b, c order. dst must hold the whole request.
func EncodeRequest(dst []byte, op Op, a, b, c []byte) ([]byte, error) {
	if !FitsPayload(len(a), len(b), len(c)) {
		return nil, ErrPayloadTooLarge
	}
	n := RequestHeaderSize + len(a) + len(b) + len(c)
	if n > len(dst) {
		return nil, ErrBufferTooSmall
	}
	RequestHeader{
		Op:   op,
		ALen: uint16(len(a)),
		BLen: uint16(len(b)),
		CLen: uint16(len(c)),
	}.Put(dst)
	off := RequestHeaderSize
	off += copy(dst[off:], a)
	off += copy(dst[off:], b)
	off += copy(dst[off:], c)
	return dst[:off], nil
}

// EncodeResponse writes a response header and result into dst and returns the
// used length. A non-success status never carries a result.
func EncodeResponse(dst []byte, status Status, result []byte) int {
	if !status.OK() {
		result = nil
	}
	if len(result) > len(dst)-ResponseHeaderSize || len(result) > MaxResultSize {
		status, result = StatusBufferTooSmall, nil
	}
	ResponseHeader{Status: status, ResultLen: uint16(len(result))}.Put(dst)
	return ResponseHeaderSize + copy(dst[ResponseHeaderSize:], result)
}
