package protocol

import "fmt"

// Op is the request opcode. It selects algorithm and phase.
type Op uint8

const (
	OpSHA256 Op = 0x01
	OpSHA384 Op = 0x02
	OpSHA512 Op = 0x03

	OpSHA256Begin  Op = 0x04
	OpSHA256Update Op = 0x05
	OpSHA256Finish Op = 0x06
	OpSHA384Begin  Op = 0x07
	OpSHA384Update Op = 0x08
	OpSHA384Finish Op = 0x09
	OpSHA512Begin  Op = 0x0A
	OpSHA512Update Op = 0x0B
	OpSHA512Finish Op = 0x0C

	OpHMACSHA256 Op = 0x10
	OpHMACSHA384 Op = 0x11
	OpHMACSHA512 Op = 0x12

	OpAES256GCMEncrypt Op = 0x20
	OpAES256GCMDecrypt Op = 0x21

	OpECDSAP256Sign   Op = 0x40
	OpECDSAP256Verify Op = 0x41
	OpECDSAP384Sign   Op = 0x42
	OpECDSAP384Verify Op = 0x43
)

// Family groups opcodes that share a request layout and result shape.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyDigest
	FamilyDigestBegin
	FamilyDigestUpdate
	FamilyDigestFinish
	FamilyMAC
	FamilyAEAD
	FamilySign
	FamilyVerify
)

type opInfo struct {
	name   string
	family Family
	width  int
}

var ops = map[Op]opInfo{
	OpSHA256:           {"sha256", FamilyDigest, SHA256Size},
	OpSHA384:           {"sha384", FamilyDigest, SHA384Size},
	OpSHA512:           {"sha512", FamilyDigest, SHA512Size},
	OpSHA256Begin:      {"sha256.begin", FamilyDigestBegin, 0},
	OpSHA256Update:     {"sha256.update", FamilyDigestUpdate, 0},
	OpSHA256Finish:     {"sha256.finish", FamilyDigestFinish, SHA256Size},
	OpSHA384Begin:      {"sha384.begin", FamilyDigestBegin, 0},
	OpSHA384Update:     {"sha384.update", FamilyDigestUpdate, 0},
	OpSHA384Finish:     {"sha384.finish", FamilyDigestFinish, SHA384Size},
	OpSHA512Begin:      {"sha512.begin", FamilyDigestBegin, 0},
	OpSHA512Update:     {"sha512.update", FamilyDigestUpdate, 0},
	OpSHA512Finish:     {"sha512.finish", FamilyDigestFinish, SHA512Size},
	OpHMACSHA256:       {"hmac-sha256", FamilyMAC, SHA256Size},
	OpHMACSHA384:       {"hmac-sha384", FamilyMAC, SHA384Size},
	OpHMACSHA512:       {"hmac-sha512", FamilyMAC, SHA512Size},
	OpAES256GCMEncrypt: {"aes256-gcm.seal", FamilyAEAD, 0},
	OpAES256GCMDecrypt: {"aes256-gcm.open", FamilyAEAD, 0},
	OpECDSAP256Sign:    {"ecdsa-p256.sign", FamilySign, P256SignatureSize},
	OpECDSAP256Verify:  {"ecdsa-p256.verify", FamilyVerify, 0},
	OpECDSAP384Sign:    {"ecdsa-p384.sign", FamilySign, P384SignatureSize},
	OpECDSAP384Verify:  {"ecdsa-p384.verify", FamilyVerify, 0},
}

// ParseOp validates a raw opcode byte.
func ParseOp(b uint8) (Op, error) {
	op := Op(b)
	if _, ok := ops[op]; !ok {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, b)
	}
	return op, nil
}

func (o Op) Valid() bool {
	_, ok := ops[o]
	return ok
}

func (o Op) String() string {
	if info, ok := ops[o]; ok {
		return info.name
	}
	return fmt.Sprintf("op(0x%02x)", uint8(o))
}

// Family reports the layout family of o.
func (o Op) Family() Family {
	return ops[o].family
}

// ResultSize is the fixed result width for o. It is zero for acknowledgement
// ops and for ops whose result length depends on the input (AEAD, verify).
func (o Op) ResultSize() int {
	return ops[o].width
}
