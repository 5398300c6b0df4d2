package client

import (
	"context"
	"time"

	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/transport"
	"github.com/rs/zerolog"
)

// Config selects the channel endpoint and an optional per-call deadline.
type Config struct {
	Handle transport.Handle
	// Timeout bounds each transact when positive. Zero leaves the caller's
	// context as the only deadline.
	Timeout time.Duration
}

// Client is a lightweight binding of a transactor to one handle. Any number
// of clients may share a transactor or a handle; ordering of concurrent
// calls is up to the transport and server.
type Client struct {
	tr      transport.Transactor
	handle  transport.Handle
	timeout time.Duration
	log     zerolog.Logger
}

func New(tr transport.Transactor, cfg Config) *Client {
	return &Client{
		tr:      tr,
		handle:  cfg.Handle,
		timeout: cfg.Timeout,
		log:     logging.Component("client").With().Uint32("handle", uint32(cfg.Handle)).Logger(),
	}
}

func (c *Client) Handle() transport.Handle {
	return c.handle
}

func (c *Client) SHA256(ctx context.Context, data []byte) ([protocol.SHA256Size]byte, error) {
	var out [protocol.SHA256Size]byte
	err := c.fixed(ctx, protocol.OpSHA256, nil, nil, data, out[:])
	return out, err
}

func (c *Client) SHA384(ctx context.Context, data []byte) ([protocol.SHA384Size]byte, error) {
	var out [protocol.SHA384Size]byte
	err := c.fixed(ctx, protocol.OpSHA384, nil, nil, data, out[:])
	return out, err
}

func (c *Client) SHA512(ctx context.Context, data []byte) ([protocol.SHA512Size]byte, error) {
	var out [protocol.SHA512Size]byte
	err := c.fixed(ctx, protocol.OpSHA512, nil, nil, data, out[:])
	return out, err
}

func (c *Client) HMACSHA256(ctx context.Context, key, data []byte) ([protocol.SHA256Size]byte, error) {
	var out [protocol.SHA256Size]byte
	err := c.fixed(ctx, protocol.OpHMACSHA256, key, nil, data, out[:])
	return out, err
}

func (c *Client) HMACSHA384(ctx context.Context, key, data []byte) ([protocol.SHA384Size]byte, error) {
	var out [protocol.SHA384Size]byte
	err := c.fixed(ctx, protocol.OpHMACSHA384, key, nil, data, out[:])
	return out, err
}

func (c *Client) HMACSHA512(ctx context.Context, key, data []byte) ([protocol.SHA512Size]byte, error) {
	var out [protocol.SHA512Size]byte
	err := c.fixed(ctx, protocol.OpHMACSHA512, key, nil, data, out[:])
	return out, err
}

// AES256GCMSeal encrypts plaintext and writes ciphertext followed by the
// 16-byte tag into out. It returns len(plaintext)+16.
func (c *Client) AES256GCMSeal(ctx context.Context, key [protocol.AES256KeySize]byte, nonce [protocol.GCMNonceSize]byte, plaintext, out []byte) (int, error) {
	return c.aead(ctx, protocol.OpAES256GCMEncrypt, key[:], nonce[:], plaintext, out, len(plaintext)+protocol.GCMTagSize)
}

// AES256GCMOpen authenticates and decrypts ciphertext (which carries its
// tag) into out. A bad tag is a KindServer error with status authentication
// failed.
func (c *Client) AES256GCMOpen(ctx context.Context, key [protocol.AES256KeySize]byte, nonce [protocol.GCMNonceSize]byte, ciphertext, out []byte) (int, error) {
	return c.aead(ctx, protocol.OpAES256GCMDecrypt, key[:], nonce[:], ciphertext, out, len(ciphertext)-protocol.GCMTagSize)
}

// ECDSAP256Sign signs the SHA-256 digest of message. The signature is r||s.
func (c *Client) ECDSAP256Sign(ctx context.Context, privateKey [protocol.P256PrivateKeySize]byte, message []byte) ([protocol.P256SignatureSize]byte, error) {
	var out [protocol.P256SignatureSize]byte
	err := c.fixed(ctx, protocol.OpECDSAP256Sign, privateKey[:], nil, message, out[:])
	return out, err
}

// ECDSAP256Verify checks an r||s signature against an uncompressed SEC1
// public key. A signature that does not verify is a KindVerificationFailed
// error.
func (c *Client) ECDSAP256Verify(ctx context.Context, publicKey, message []byte, signature [protocol.P256SignatureSize]byte) error {
	return c.verify(ctx, protocol.OpECDSAP256Verify, publicKey, signature[:], message)
}

func (c *Client) ECDSAP384Sign(ctx context.Context, privateKey [protocol.P384PrivateKeySize]byte, message []byte) ([protocol.P384SignatureSize]byte, error) {
	var out [protocol.P384SignatureSize]byte
	err := c.fixed(ctx, protocol.OpECDSAP384Sign, privateKey[:], nil, message, out[:])
	return out, err
}

func (c *Client) ECDSAP384Verify(ctx context.Context, publicKey, message []byte, signature [protocol.P384SignatureSize]byte) error {
	return c.verify(ctx, protocol.OpECDSAP384Verify, publicKey, signature[:], message)
}

func (c *Client) SHA256Begin(ctx context.Context) (*Session[SHA256], error) {
	return Begin[SHA256](ctx, c)
}

func (c *Client) SHA384Begin(ctx context.Context) (*Session[SHA384], error) {
	return Begin[SHA384](ctx, c)
}

func (c *Client) SHA512Begin(ctx context.Context) (*Session[SHA512], error) {
	return Begin[SHA512](ctx, c)
}

// Digest is the one-shot digest for any DigestAlgorithm. The result is
// exactly A.Size() bytes.
func Digest[A DigestAlgorithm](ctx context.Context, c *Client, data []byte) ([]byte, error) {
	var alg A
	out := make([]byte, alg.Size())
	if err := c.fixed(ctx, alg.ops().oneShot, nil, nil, data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MAC computes an HMAC tag of exactly A.Size() bytes.
func MAC[A MACAlgorithm](ctx context.Context, c *Client, key, data []byte) ([]byte, error) {
	var alg A
	out := make([]byte, alg.Size())
	if err := c.fixed(ctx, alg.op(), key, nil, data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sign returns an r||s signature of exactly C.SignatureSize() bytes.
func Sign[C Curve](ctx context.Context, c *Client, privateKey, message []byte) ([]byte, error) {
	var curve C
	out := make([]byte, curve.SignatureSize())
	if err := c.fixed(ctx, curve.signOp(), privateKey, nil, message, out); err != nil {
		return nil, err
	}
	return out, nil
}

func Verify[C Curve](ctx context.Context, c *Client, publicKey, message, signature []byte) error {
	var curve C
	return c.verify(ctx, curve.verifyOp(), publicKey, signature, message)
}
