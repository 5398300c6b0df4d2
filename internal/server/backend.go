package server

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"github.com/danmuck/cryptochan/internal/protocol"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Error is a backend failure tagged with the status reported on the wire.
type Error struct {
	Status protocol.Status
}

func (e *Error) Error() string {
	return "server: " + e.Status.String()
}

var (
	ErrUnsupported          = &Error{Status: protocol.StatusInvalidOperation}
	ErrInvalidKeyLength     = &Error{Status: protocol.StatusInvalidKeyLength}
	ErrInvalidNonceLength   = &Error{Status: protocol.StatusInvalidNonceLength}
	ErrInvalidDataLength    = &Error{Status: protocol.StatusInvalidDataLength}
	ErrAuthenticationFailed = &Error{Status: protocol.StatusAuthenticationFailed}
	ErrEncryptionFailed     = &Error{Status: protocol.StatusEncryptionFailed}
	ErrBufferTooSmall       = &Error{Status: protocol.StatusBufferTooSmall}
	ErrSigningFailed        = &Error{Status: protocol.StatusSigningFailed}
	ErrVerificationFailed   = &Error{Status: protocol.StatusVerificationFailed}
	ErrInvalidSignature     = &Error{Status: protocol.StatusInvalidSignature}
	ErrSessionNotFound      = &Error{Status: protocol.StatusSessionNotFound}
	ErrSessionBusy          = &Error{Status: protocol.StatusSessionBusy}
)

// StatusOf maps an error from a Backend to its wire status. Errors without a
// status become internal error.
func StatusOf(err error) protocol.Status {
	if err == nil {
		return protocol.StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return protocol.StatusInternalError
}

// Backend runs the primitives. Each method writes its result into out and
// returns the length written. The op argument names the algorithm by its
// one-shot opcode.
type Backend interface {
	NewDigest(op protocol.Op) (hash.Hash, error)
	MAC(op protocol.Op, key, data, out []byte) (int, error)
	Seal(key, nonce, plaintext, out []byte) (int, error)
	Open(key, nonce, ciphertext, out []byte) (int, error)
	Sign(op protocol.Op, privateKey, message, out []byte) (int, error)
	Verify(op protocol.Op, publicKey, signature, message []byte) error
}

// StdBackend implements Backend with the standard library primitives.
type StdBackend struct{}

var _ Backend = StdBackend{}

func digestFor(op protocol.Op) (func() hash.Hash, bool) {
	switch op {
	case protocol.OpSHA256, protocol.OpHMACSHA256:
		return sha256.New, true
	case protocol.OpSHA384, protocol.OpHMACSHA384:
		return sha512.New384, true
	case protocol.OpSHA512, protocol.OpHMACSHA512:
		return sha512.New, true
	}
	return nil, false
}

func (StdBackend) NewDigest(op protocol.Op) (hash.Hash, error) {
	if op.Family() != protocol.FamilyDigest {
		return nil, ErrUnsupported
	}
	newHash, ok := digestFor(op)
	if !ok {
		return nil, ErrUnsupported
	}
	return newHash(), nil
}

func (StdBackend) MAC(op protocol.Op, key, data, out []byte) (int, error) {
	if op.Family() != protocol.FamilyMAC {
		return 0, ErrUnsupported
	}
	newHash, ok := digestFor(op)
	if !ok {
		return 0, ErrUnsupported
	}
	mac := hmac.New(newHash, key)
	if len(out) < mac.Size() {
		return 0, ErrBufferTooSmall
	}
	mac.Write(data)
	return copy(out, mac.Sum(nil)), nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != protocol.AES256KeySize {
		return nil, ErrInvalidKeyLength
	}
	if len(nonce) != protocol.GCMNonceSize {
		return nil, ErrInvalidNonceLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
	}
	return cipher.NewGCM(block)
}

func (StdBackend) Seal(key, nonce, plaintext, out []byte) (int, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return 0, err
	}
	if len(out) < len(plaintext)+protocol.GCMTagSize {
		return 0, ErrBufferTooSmall
	}
	return len(aead.Seal(out[:0], nonce, plaintext, nil)), nil
}

func (StdBackend) Open(key, nonce, ciphertext, out []byte) (int, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return 0, err
	}
	if len(ciphertext) < protocol.GCMTagSize {
		return 0, ErrInvalidDataLength
	}
	if len(out) < len(ciphertext)-protocol.GCMTagSize {
		return 0, ErrBufferTooSmall
	}
	plain, err := aead.Open(out[:0], nonce, ciphertext, nil)
	if err != nil {
		return 0, ErrAuthenticationFailed
	}
	return len(plain), nil
}

type curveParams struct {
	curve   elliptic.Curve
	newHash func() hash.Hash
	size    int
}

func curveFor(op protocol.Op) (curveParams, bool) {
	switch op {
	case protocol.OpECDSAP256Sign, protocol.OpECDSAP256Verify:
		return curveParams{curve: elliptic.P256(), newHash: sha256.New, size: protocol.P256PrivateKeySize}, true
	case protocol.OpECDSAP384Sign, protocol.OpECDSAP384Verify:
		return curveParams{curve: elliptic.P384(), newHash: sha512.New384, size: protocol.P384PrivateKeySize}, true
	}
	return curveParams{}, false
}

func (p curveParams) digest(message []byte) []byte {
	h := p.newHash()
	h.Write(message)
	return h.Sum(nil)
}

// Sign hashes message with the curve's paired SHA-2 function and returns the
// signature as fixed-width r||s.
func (StdBackend) Sign(op protocol.Op, privateKey, message, out []byte) (int, error) {
	p, ok := curveFor(op)
	if !ok || op.Family() != protocol.FamilySign {
		return 0, ErrUnsupported
	}
	if len(privateKey) != p.size {
		return 0, ErrInvalidKeyLength
	}
	if len(out) < 2*p.size {
		return 0, ErrBufferTooSmall
	}
	key, err := ecdsa.ParseRawPrivateKey(p.curve, privateKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
	}
	der, err := ecdsa.SignASN1(rand.Reader, key, p.digest(message))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if err := rawSignature(der, p.size, out[:2*p.size]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return 2 * p.size, nil
}

// Verify accepts an uncompressed SEC1 public key and a fixed-width r||s
// signature. A signature of the wrong width fails verification.
func (StdBackend) Verify(op protocol.Op, publicKey, signature, message []byte) error {
	p, ok := curveFor(op)
	if !ok || op.Family() != protocol.FamilyVerify {
		return ErrUnsupported
	}
	if len(signature) != 2*p.size {
		return ErrVerificationFailed
	}
	key, err := ecdsa.ParseUncompressedPublicKey(p.curve, publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
	}
	der, err := asn1Signature(signature[:p.size], signature[p.size:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ecdsa.VerifyASN1(key, p.digest(message), der) {
		return ErrVerificationFailed
	}
	return nil
}

// rawSignature converts an ASN.1 ECDSA signature into left-padded r||s.
func rawSignature(der []byte, size int, out []byte) error {
	var (
		inner cryptobyte.String
		r, s  []byte
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(&r) ||
		!inner.ReadASN1Integer(&s) ||
		!inner.Empty() {
		return errors.New("invalid ASN.1 signature")
	}
	if len(r) > size || len(s) > size {
		return errors.New("signature scalar exceeds curve size")
	}
	clear(out)
	copy(out[size-len(r):size], r)
	copy(out[2*size-len(s):], s)
	return nil
}

func asn1Signature(r, s []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(new(big.Int).SetBytes(r))
		b.AddASN1BigInt(new(big.Int).SetBytes(s))
	})
	return b.Bytes()
}
