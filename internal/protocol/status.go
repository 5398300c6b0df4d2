package protocol

import "fmt"

// Status is the response header outcome code.
type Status uint8

const (
	StatusSuccess              Status = 0x00
	StatusInvalidOperation     Status = 0x01
	StatusInvalidKeyLength     Status = 0x02
	StatusInvalidNonceLength   Status = 0x03
	StatusInvalidDataLength    Status = 0x04
	StatusAuthenticationFailed Status = 0x05
	StatusEncryptionFailed     Status = 0x06
	StatusDecryptionFailed     Status = 0x07
	StatusBufferTooSmall       Status = 0x08
	StatusSigningFailed        Status = 0x09
	StatusVerificationFailed   Status = 0x0A
	StatusInvalidSignature     Status = 0x0B
	StatusSessionNotFound      Status = 0x0C
	StatusSessionBusy          Status = 0x0D
	StatusAllocationFailure    Status = 0x10
	StatusInitializationError  Status = 0x11
	StatusUpdateError          Status = 0x12
	StatusFinalizationError    Status = 0x13
	StatusHardwareFailure      Status = 0x14
	StatusInvalidOutputSize    Status = 0x15
	StatusPermissionDenied     Status = 0x16
	StatusInternalError        Status = 0xFF
)

var statusNames = map[Status]string{
	StatusSuccess:              "success",
	StatusInvalidOperation:     "invalid operation",
	StatusInvalidKeyLength:     "invalid key length",
	StatusInvalidNonceLength:   "invalid nonce length",
	StatusInvalidDataLength:    "invalid data length",
	StatusAuthenticationFailed: "authentication failed",
	StatusEncryptionFailed:     "encryption failed",
	StatusDecryptionFailed:     "decryption failed",
	StatusBufferTooSmall:       "buffer too small",
	StatusSigningFailed:        "signing failed",
	StatusVerificationFailed:   "verification failed",
	StatusInvalidSignature:     "invalid signature",
	StatusSessionNotFound:      "session not found",
	StatusSessionBusy:          "session busy",
	StatusAllocationFailure:    "allocation failure",
	StatusInitializationError:  "initialization error",
	StatusUpdateError:          "update error",
	StatusFinalizationError:    "finalization error",
	StatusHardwareFailure:      "hardware failure",
	StatusInvalidOutputSize:    "invalid output size",
	StatusPermissionDenied:     "permission denied",
	StatusInternalError:        "internal error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(0x%02x)", uint8(s))
}

// Known reports whether s is part of the status table. Unknown codes are kept
// verbatim so a newer server can be diagnosed by an older client.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) OK() bool {
	return s == StatusSuccess
}
