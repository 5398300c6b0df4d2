package client

import "github.com/danmuck/cryptochan/internal/protocol"

// DigestAlgorithm is a SHA-2 variant usable with Digest and Begin.
type DigestAlgorithm interface {
	Name() string
	Size() int
	ops() digestOps
}

type digestOps struct {
	oneShot, begin, update, finish protocol.Op
}

// MACAlgorithm is an HMAC variant usable with MAC.
type MACAlgorithm interface {
	Name() string
	Size() int
	op() protocol.Op
}

// Curve is an ECDSA curve usable with Sign and Verify.
type Curve interface {
	Name() string
	PrivateKeySize() int
	PublicKeySize() int
	SignatureSize() int
	signOp() protocol.Op
	verifyOp() protocol.Op
}

type (
	SHA256 struct{}
	SHA384 struct{}
	SHA512 struct{}

	HMACSHA256 struct{}
	HMACSHA384 struct{}
	HMACSHA512 struct{}

	P256 struct{}
	P384 struct{}
)

var (
	_ DigestAlgorithm = SHA256{}
	_ DigestAlgorithm = SHA384{}
	_ DigestAlgorithm = SHA512{}
	_ MACAlgorithm    = HMACSHA256{}
	_ MACAlgorithm    = HMACSHA384{}
	_ MACAlgorithm    = HMACSHA512{}
	_ Curve           = P256{}
	_ Curve           = P384{}
)

func (SHA256) Name() string { return "sha256" }
func (SHA256) Size() int { return protocol.SHA256Size }
func (SHA256) ops() digestOps {
	return digestOps{protocol.OpSHA256, protocol.OpSHA256Begin, protocol.OpSHA256Update, protocol.OpSHA256Finish}
}

func (SHA384) Name() string { return "sha384" }
func (SHA384) Size() int { return protocol.SHA384Size }
func (SHA384) ops() digestOps {
	return digestOps{protocol.OpSHA384, protocol.OpSHA384Begin, protocol.OpSHA384Update, protocol.OpSHA384Finish}
}

func (SHA512) Name() string { return "sha512" }
func (SHA512) Size() int { return protocol.SHA512Size }
func (SHA512) ops() digestOps {
	return digestOps{protocol.OpSHA512, protocol.OpSHA512Begin, protocol.OpSHA512Update, protocol.OpSHA512Finish}
}

func (HMACSHA256) Name() string { return "hmac-sha256" }
func (HMACSHA256) Size() int { return protocol.SHA256Size }
func (HMACSHA256) op() protocol.Op { return protocol.OpHMACSHA256 }
func (HMACSHA384) Name() string { return "hmac-sha384" }
func (HMACSHA384) Size() int { return protocol.SHA384Size }
func (HMACSHA384) op() protocol.Op { return protocol.OpHMACSHA384 }
func (HMACSHA512) Name() string { return "hmac-sha512" }
func (HMACSHA512) Size() int { return protocol.SHA512Size }
func (HMACSHA512) op() protocol.Op { return protocol.OpHMACSHA512 }

func (P256) Name() string { return "p256" }
func (P256) PrivateKeySize() int { return protocol.P256PrivateKeySize }
func (P256) PublicKeySize() int { return protocol.P256PublicKeySize }
func (P256) SignatureSize() int { return protocol.P256SignatureSize }
func (P256) signOp() protocol.Op { return protocol.OpECDSAP256Sign }
func (P256) verifyOp() protocol.Op { return protocol.OpECDSAP256Verify }
func (P384) Name() string { return "p384" }
func (P384) PrivateKeySize() int { return protocol.P384PrivateKeySize }
func (P384) PublicKeySize() int { return protocol.P384PublicKeySize }
func (P384) SignatureSize() int { return protocol.P384SignatureSize }
func (P384) signOp() protocol.Op { return protocol.OpECDSAP384Sign }
func (P384) verifyOp() protocol.Op { return protocol.OpECDSAP384Verify }
