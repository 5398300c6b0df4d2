package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/cryptochan/internal/client"
	"github.com/danmuck/cryptochan/internal/config"
	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/transport"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// EnvKey supplies the hex key for hmac, seal, open and sign when -key is
// not given.
const EnvKey = "CRYPTOCHAN_KEY"

var errUsage = errors.New("usage")

const usage = `usage: cryptoctl [-config path] <command> [flags] [file]

commands:
  hash         -alg sha256|sha384|sha512
  hash-stream  -alg sha256|sha384|sha512
  hmac         -alg sha256|sha384|sha512 -key hex
  seal         -key hex -nonce hex
  open         -key hex -nonce hex        (input is hex ciphertext)
  sign         -curve p256|p384 -key hex
  verify       -curve p256|p384 -pub hex -sig hex

Input is read from file, or stdin when file is "-" or omitted.
Keys fall back to $CRYPTOCHAN_KEY, then a terminal prompt.
`

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// dial opens the channel named by cfg.
	dial func(ctx context.Context, cfg config.ClientConfig) (transport.Transactor, io.Closer, error)
	// secret reads a hex secret interactively.
	secret func(prompt string) (string, error)
}

func main() {
	_ = godotenv.Load()
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		dial:   dialStream,
		secret: promptSecret,
	}
	os.Exit(a.run(ctx, os.Args[1:]))
}

func dialStream(ctx context.Context, cfg config.ClientConfig) (transport.Transactor, io.Closer, error) {
	conn, err := transport.DialRetry(ctx, cfg.Stream, transport.DefaultBackoff(cfg.ConnectAttempts))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn, nil
}

func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no key given: set -key or %s", EnvKey)
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (a *app) run(ctx context.Context, args []string) int {
	global := flag.NewFlagSet("cryptoctl", flag.ContinueOnError)
	global.SetOutput(a.stderr)
	global.Usage = func() { fmt.Fprint(a.stderr, usage) }
	configPath := global.String("config", "", "path to cryptoctl config.toml")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "cryptoctl: %v\n", err)
		return 1
	}

	if err := a.dispatch(ctx, cfg, global.Arg(0), global.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(a.stderr, usage)
			return 2
		}
		fmt.Fprintf(a.stderr, "cryptoctl: %v\n", err)
		if errors.Is(err, client.ErrVerificationFailed) {
			return 3
		}
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, cfg config.ClientConfig, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	alg := fs.String("alg", "sha256", "digest algorithm")
	curve := fs.String("curve", "p256", "ecdsa curve")
	keyHex := fs.String("key", "", "hex key")
	nonceHex := fs.String("nonce", "", "hex nonce")
	pubHex := fs.String("pub", "", "hex uncompressed public key")
	sigHex := fs.String("sig", "", "hex raw r||s signature")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	switch cmd {
	case "hash", "hash-stream", "hmac", "seal", "open", "sign", "verify":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	in, closeIn, err := a.input(fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeIn()

	tr, closer, err := a.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	c := client.New(tr, cfg.Client())

	if cmd == "hash-stream" {
		sum, err := hashStream(ctx, c, *alg, in)
		if err != nil {
			return err
		}
		return a.printHex(sum)
	}

	// open takes hex text, two characters per byte plus a trailing newline.
	limit := int64(protocol.MaxPayloadSize + 1)
	if cmd == "open" {
		limit = 2*protocol.MaxPayloadSize + 2
	}
	data, err := io.ReadAll(io.LimitReader(in, limit))
	if err != nil {
		return err
	}

	switch cmd {
	case "hash":
		sum, err := digest(ctx, c, *alg, data)
		if err != nil {
			return err
		}
		return a.printHex(sum)
	case "hmac":
		key, err := a.key(*keyHex, "hmac key (hex): ")
		if err != nil {
			return err
		}
		tag, err := mac(ctx, c, *alg, key, data)
		if err != nil {
			return err
		}
		return a.printHex(tag)
	case "seal", "open":
		return a.aead(ctx, c, cmd, *keyHex, *nonceHex, data)
	case "sign":
		priv, err := a.key(*keyHex, "private key (hex): ")
		if err != nil {
			return err
		}
		sig, err := sign(ctx, c, *curve, priv, data)
		if err != nil {
			return err
		}
		return a.printHex(sig)
	default:
		pub, err := decodeHex("pub", *pubHex)
		if err != nil {
			return err
		}
		sig, err := decodeHex("sig", *sigHex)
		if err != nil {
			return err
		}
		if err := verify(ctx, c, *curve, pub, data, sig); err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout, "ok")
		return err
	}
}

func (a *app) aead(ctx context.Context, c *client.Client, cmd, keyHex, nonceHex string, data []byte) error {
	rawKey, err := a.key(keyHex, "aes-256 key (hex): ")
	if err != nil {
		return err
	}
	rawNonce, err := decodeHex("nonce", nonceHex)
	if err != nil {
		return err
	}
	var key [protocol.AES256KeySize]byte
	var nonce [protocol.GCMNonceSize]byte
	if len(rawKey) != len(key) {
		return fmt.Errorf("key must be %d bytes, got %d", len(key), len(rawKey))
	}
	if len(rawNonce) != len(nonce) {
		return fmt.Errorf("nonce must be %d bytes, got %d", len(nonce), len(rawNonce))
	}
	copy(key[:], rawKey)
	copy(nonce[:], rawNonce)

	out := make([]byte, protocol.MaxResultSize)
	if cmd == "seal" {
		n, err := c.AES256GCMSeal(ctx, key, nonce, data, out)
		if err != nil {
			return err
		}
		return a.printHex(out[:n])
	}
	ciphertext, err := decodeHex("ciphertext", string(data))
	if err != nil {
		return err
	}
	n, err := c.AES256GCMOpen(ctx, key, nonce, ciphertext, out)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out[:n])
	return err
}

func (a *app) input(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func (a *app) key(flagValue, prompt string) ([]byte, error) {
	raw := flagValue
	if raw == "" {
		raw = os.Getenv(EnvKey)
	}
	if raw == "" {
		s, err := a.secret(prompt)
		if err != nil {
			return nil, err
		}
		raw = s
	}
	return decodeHex("key", raw)
}

func (a *app) printHex(b []byte) error {
	_, err := fmt.Fprintln(a.stdout, hex.EncodeToString(b))
	return err
}

func decodeHex(name, raw string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return b, nil
}

func digest(ctx context.Context, c *client.Client, alg string, data []byte) ([]byte, error) {
	switch alg {
	case "sha256":
		return client.Digest[client.SHA256](ctx, c, data)
	case "sha384":
		return client.Digest[client.SHA384](ctx, c, data)
	case "sha512":
		return client.Digest[client.SHA512](ctx, c, data)
	}
	return nil, fmt.Errorf("unknown digest %q", alg)
}

func mac(ctx context.Context, c *client.Client, alg string, key, data []byte) ([]byte, error) {
	switch strings.TrimPrefix(alg, "hmac-") {
	case "sha256":
		return client.MAC[client.HMACSHA256](ctx, c, key, data)
	case "sha384":
		return client.MAC[client.HMACSHA384](ctx, c, key, data)
	case "sha512":
		return client.MAC[client.HMACSHA512](ctx, c, key, data)
	}
	return nil, fmt.Errorf("unknown hmac %q", alg)
}

func sign(ctx context.Context, c *client.Client, curve string, priv, msg []byte) ([]byte, error) {
	switch curve {
	case "p256":
		return client.Sign[client.P256](ctx, c, priv, msg)
	case "p384":
		return client.Sign[client.P384](ctx, c, priv, msg)
	}
	return nil, fmt.Errorf("unknown curve %q", curve)
}

func verify(ctx context.Context, c *client.Client, curve string, pub, msg, sig []byte) error {
	switch curve {
	case "p256":
		return client.Verify[client.P256](ctx, c, pub, msg, sig)
	case "p384":
		return client.Verify[client.P384](ctx, c, pub, msg, sig)
	}
	return fmt.Errorf("unknown curve %q", curve)
}

func hashStream(ctx context.Context, c *client.Client, alg string, r io.Reader) ([]byte, error) {
	switch alg {
	case "sha256":
		return streamInto[client.SHA256](ctx, c, r)
	case "sha384":
		return streamInto[client.SHA384](ctx, c, r)
	case "sha512":
		return streamInto[client.SHA512](ctx, c, r)
	}
	return nil, fmt.Errorf("unknown digest %q", alg)
}

// streamInto always finishes the session so the server slot is released
// even when reading r fails.
func streamInto[A client.DigestAlgorithm](ctx context.Context, c *client.Client, r io.Reader) ([]byte, error) {
	s, err := client.Begin[A](ctx, c)
	if err != nil {
		return nil, err
	}
	_, copyErr := io.Copy(s.Writer(ctx), r)
	sum, err := s.Finish(ctx)
	if copyErr != nil {
		return nil, copyErr
	}
	return sum, err
}
