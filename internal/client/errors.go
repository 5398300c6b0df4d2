package client

import (
	"errors"
	"fmt"

	"github.com/danmuck/cryptochan/internal/protocol"
)

// Kind classifies a client failure.
type Kind uint8

const (
	// KindTransport is a channel failure. It is the only retryable kind.
	KindTransport Kind = iota + 1
	// KindServer is a well-formed response with a non-success status.
	KindServer
	// KindInvalidResponse is a response that breaks the wire contract.
	KindInvalidResponse
	// KindBufferTooSmall is an input or output that exceeds a known capacity.
	KindBufferTooSmall
	// KindVerificationFailed is a signature or tag that did not verify.
	KindVerificationFailed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindInvalidResponse:
		return "invalid response"
	case KindBufferTooSmall:
		return "buffer too small"
	case KindVerificationFailed:
		return "verification failed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is the single error type returned by client operations.
//
// Status is set for KindServer and KindVerificationFailed. Err holds the
// transport error for KindTransport and the decoding detail otherwise.
type Error struct {
	Kind   Kind
	Op     protocol.Op
	Status protocol.Status
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrTransport          = &Error{Kind: KindTransport}
	ErrServer             = &Error{Kind: KindServer}
	ErrInvalidResponse    = &Error{Kind: KindInvalidResponse}
	ErrBufferTooSmall     = &Error{Kind: KindBufferTooSmall}
	ErrVerificationFailed = &Error{Kind: KindVerificationFailed}
)

// ErrSessionFinished is wrapped by every call on a session after Finish.
var ErrSessionFinished = errors.New("client: session already finished")

func (e *Error) Error() string {
	msg := "client: "
	if e.Op != 0 {
		msg += e.Op.String() + ": "
	}
	msg += e.Kind.String()
	if e.Kind == KindServer {
		msg += ": " + e.Status.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == 0 && t.Status == 0 && t.Err == nil
}

// KindOf reports the Kind of err, or zero if err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StatusOf returns the server status carried by err.
func StatusOf(err error) (protocol.Status, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	switch e.Kind {
	case KindServer, KindVerificationFailed:
		return e.Status, true
	}
	return 0, false
}

// Retryable reports whether repeating the same call could succeed. Only
// channel failures qualify; every other kind is deterministic for the same
// inputs.
func Retryable(err error) bool {
	return KindOf(err) == KindTransport
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func serverError(status protocol.Status) *Error {
	return &Error{Kind: KindServer, Status: status}
}

func invalidResponse(err error) *Error {
	return &Error{Kind: KindInvalidResponse, Err: err}
}

func bufferTooSmall(err error) *Error {
	return &Error{Kind: KindBufferTooSmall, Err: err}
}

func finishedError(op protocol.Op) *Error {
	return &Error{Kind: KindServer, Op: op, Status: protocol.StatusSessionNotFound, Err: ErrSessionFinished}
}
