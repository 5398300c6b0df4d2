package protocol

const (
	// RequestHeaderSize is the fixed request header: op, flags, three u16 lengths.
	RequestHeaderSize = 8
	// ResponseHeaderSize is the fixed response header: status, reserved, u16 length.
	ResponseHeaderSize = 4

	// MaxMessageSize bounds a whole request or response on the channel.
	MaxMessageSize = 1024
	// MaxPayloadSize bounds field_a + field_b + field_c of one request.
	MaxPayloadSize = 512
)

const (
	SHA256Size = 32
	SHA384Size = 48
	SHA512Size = 64

	AES256KeySize = 32
	GCMNonceSize  = 12
	GCMTagSize    = 16

	P256PrivateKeySize = 32
	P256PublicKeySize  = 65
	P256SignatureSize  = 64
	P384PrivateKeySize = 48
	P384PublicKeySize  = 97
	P384SignatureSize  = 96
)

// MaxResultSize is the largest result a server may place after the response header.
const MaxResultSize = MaxMessageSize - ResponseHeaderSize

// FitsPayload reports whether fields of the given lengths fit one request.
func FitsPayload(lengths ...int) bool {
	total := 0
	for _, n := range lengths {
		if n < 0 || n > MaxPayloadSize {
			return false
		}
		total += n
	}
	return total <= MaxPayloadSize
}
