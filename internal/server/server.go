package server

import (
	"errors"
	"hash"
	"sync"
	"time"

	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/observability"
	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server serves crypto requests for one channel endpoint. It is safe for
// concurrent use; requests are handled one at a time.
type Server struct {
	backend Backend
	log     zerolog.Logger
	started time.Time

	mu      sync.Mutex
	session *session
	served  uint64
}

var _ transport.Handler = (*Server)(nil)

type session struct {
	id     string
	alg    protocol.Op
	digest hash.Hash
	opened time.Time
	fed    int
}

// SessionInfo describes the open streaming session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Algorithm string    `json:"algorithm"`
	Opened    time.Time `json:"opened"`
	Bytes     int       `json:"bytes"`
}

// Stats is a point-in-time view for the admin surface.
type Stats struct {
	Started time.Time `json:"started"`
	Served  uint64    `json:"served"`
	Session bool      `json:"session"`
}

// New returns a Server over backend. A nil backend selects StdBackend.
func New(backend Backend) *Server {
	if backend == nil {
		backend = StdBackend{}
	}
	return &Server{
		backend: backend,
		log:     logging.Component("server"),
		started: time.Now(),
	}
}

// streamAlg maps each streaming opcode to the one-shot digest it computes.
var streamAlg = map[protocol.Op]protocol.Op{
	protocol.OpSHA256Begin:  protocol.OpSHA256,
	protocol.OpSHA256Update: protocol.OpSHA256,
	protocol.OpSHA256Finish: protocol.OpSHA256,
	protocol.OpSHA384Begin:  protocol.OpSHA384,
	protocol.OpSHA384Update: protocol.OpSHA384,
	protocol.OpSHA384Finish: protocol.OpSHA384,
	protocol.OpSHA512Begin:  protocol.OpSHA512,
	protocol.OpSHA512Update: protocol.OpSHA512,
	protocol.OpSHA512Finish: protocol.OpSHA512,
}

// Serve handles one request and writes the response into response. It
// always produces a response header.
func (s *Server) Serve(h transport.Handle, request, response []byte) int {
	if len(response) < protocol.ResponseHeaderSize {
		s.log.Error().Int("len", len(response)).Msg("response buffer cannot hold a header")
		return 0
	}
	out := response[protocol.ResponseHeaderSize:]
	if len(out) > protocol.MaxResultSize {
		out = out[:protocol.MaxResultSize]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++

	op, n, err := s.dispatch(request, out)
	status := StatusOf(err)
	opLabel := op.String()
	if err != nil {
		s.log.Debug().Uint32("handle", uint32(h)).Str("op", opLabel).Err(err).Msg("request failed")
	} else {
		s.log.Debug().Uint32("handle", uint32(h)).Str("op", opLabel).Int("result", n).Msg("request served")
	}
	observability.RecordServerRequest(opLabel, status.String())
	return protocol.EncodeResponse(response, status, out[:n])
}

func (s *Server) dispatch(request, out []byte) (protocol.Op, int, error) {
	req, err := protocol.SplitRequest(request)
	if err != nil {
		var op protocol.Op
		if len(request) > 0 {
			op = protocol.Op(request[0])
		}
		return op, 0, errors.Join(ErrInvalidDataLength, err)
	}
	op, err := protocol.ParseOp(uint8(req.Header.Op))
	if err != nil {
		return req.Header.Op, 0, errors.Join(ErrUnsupported, err)
	}

	switch op.Family() {
	case protocol.FamilyDigest:
		d, err := s.backend.NewDigest(op)
		if err != nil {
			return op, 0, err
		}
		d.Write(req.C)
		n, err := finishDigest(d, out)
		return op, n, err
	case protocol.FamilyDigestBegin:
		return op, 0, s.begin(streamAlg[op])
	case protocol.FamilyDigestUpdate:
		return op, 0, s.update(streamAlg[op], req.C)
	case protocol.FamilyDigestFinish:
		n, err := s.finish(streamAlg[op], out)
		return op, n, err
	case protocol.FamilyMAC:
		n, err := s.backend.MAC(op, req.A, req.C, out)
		return op, n, err
	case protocol.FamilyAEAD:
		var (
			n   int
			err error
		)
		if op == protocol.OpAES256GCMEncrypt {
			n, err = s.backend.Seal(req.A, req.B, req.C, out)
		} else {
			n, err = s.backend.Open(req.A, req.B, req.C, out)
		}
		return op, n, err
	case protocol.FamilySign:
		n, err := s.backend.Sign(op, req.A, req.C, out)
		return op, n, err
	case protocol.FamilyVerify:
		return op, 0, s.backend.Verify(op, req.A, req.B, req.C)
	}
	return op, 0, ErrUnsupported
}

func finishDigest(d hash.Hash, out []byte) (int, error) {
	if len(out) < d.Size() {
		return 0, ErrBufferTooSmall
	}
	return copy(out, d.Sum(nil)), nil
}

func (s *Server) begin(alg protocol.Op) error {
	if s.session != nil {
		return ErrSessionBusy
	}
	d, err := s.backend.NewDigest(alg)
	if err != nil {
		return errors.Join(&Error{Status: protocol.StatusInitializationError}, err)
	}
	s.session = &session{
		id:     uuid.NewString(),
		alg:    alg,
		digest: d,
		opened: time.Now(),
	}
	observability.SetActiveSessions(1)
	s.log.Info().Str("session", s.session.id).Str("alg", alg.String()).Msg("session opened")
	return nil
}

func (s *Server) update(alg protocol.Op, chunk []byte) error {
	if s.session == nil || s.session.alg != alg {
		return ErrSessionNotFound
	}
	s.session.digest.Write(chunk)
	s.session.fed += len(chunk)
	return nil
}

// finish always clears the session, including when the algorithm does not
// match the one that was begun.
func (s *Server) finish(alg protocol.Op, out []byte) (int, error) {
	sess := s.session
	if sess == nil {
		return 0, ErrSessionNotFound
	}
	s.closeSession("session finished")
	if sess.alg != alg {
		return 0, ErrSessionNotFound
	}
	return finishDigest(sess.digest, out)
}

func (s *Server) closeSession(msg string) {
	sess := s.session
	s.session = nil
	observability.SetActiveSessions(0)
	s.log.Info().
		Str("session", sess.id).
		Str("alg", sess.alg.String()).
		Int("bytes", sess.fed).
		Dur("open", time.Since(sess.opened)).
		Msg(msg)
}

// Session reports the open streaming session, if any.
func (s *Server) Session() (SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		ID:        s.session.id,
		Algorithm: s.session.alg.String(),
		Opened:    s.session.opened,
		Bytes:     s.session.fed,
	}, true
}

// Reset drops the open streaming session. It reports whether one was open.
func (s *Server) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return false
	}
	s.closeSession("session reset")
	return true
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Started: s.started, Served: s.served, Session: s.session != nil}
}
