package client

import (
	"errors"
	"fmt"

	"github.com/danmuck/cryptochan/internal/protocol"
)

var (
	errResultLength = errors.New("result length mismatch")
	errInputTooLong = errors.New("input exceeds message payload")
	errOutputShort  = errors.New("output buffer too small")
)

// checkHeader decodes the response header and rejects non-success statuses.
func checkHeader(resp []byte) (protocol.ResponseHeader, error) {
	h, err := protocol.DecodeResponseHeader(resp)
	if err != nil {
		return h, invalidResponse(err)
	}
	if !h.Status.OK() {
		return h, serverError(h.Status)
	}
	return h, nil
}

// extractFixed copies a result of exactly len(out) bytes. A zero-length out
// accepts only an empty acknowledgement.
func extractFixed(resp, out []byte) error {
	h, err := checkHeader(resp)
	if err != nil {
		return err
	}
	if int(h.ResultLen) != len(out) {
		return invalidResponse(fmt.Errorf("%w: got %d want %d", errResultLength, h.ResultLen, len(out)))
	}
	result, err := protocol.Result(resp, h)
	if err != nil {
		return invalidResponse(err)
	}
	copy(out, result)
	return nil
}

// extractVariable copies a result of any length up to len(out) and returns
// its length. Capacity is checked before anything is copied.
func extractVariable(resp, out []byte) (int, error) {
	h, err := checkHeader(resp)
	if err != nil {
		return 0, err
	}
	if int(h.ResultLen) > len(out) {
		return 0, bufferTooSmall(fmt.Errorf("%w: result %d, capacity %d", errOutputShort, h.ResultLen, len(out)))
	}
	result, err := protocol.Result(resp, h)
	if err != nil {
		return 0, invalidResponse(err)
	}
	return copy(out, result), nil
}

// extractVerification reduces a response to valid, invalid or failed. It
// never reads the result bytes.
func extractVerification(resp []byte) error {
	h, err := protocol.DecodeResponseHeader(resp)
	if err != nil {
		return invalidResponse(err)
	}
	switch h.Status {
	case protocol.StatusSuccess:
		return nil
	case protocol.StatusVerificationFailed:
		return &Error{Kind: KindVerificationFailed, Status: h.Status}
	default:
		return serverError(h.Status)
	}
}
