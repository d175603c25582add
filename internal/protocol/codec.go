package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// XORKey is the initial XOR key shared by both legacy encodings.
	XORKey byte = 0xAB

	// MaxFrameSize is the largest TCP frame payload we will accept.
	// Real sysinfo responses are a few kilobytes; anything larger is
	// treated as a corrupt length prefix.
	MaxFrameSize = 1 << 20
)

// Obfuscate applies the fixed-key XOR encoding used by legacy discovery
// datagrams. The operation is its own inverse: applying it twice yields
// the original bytes.
func Obfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ XORKey
	}
	return out
}

// Deobfuscate reverses Obfuscate. It exists as a named counterpart so
// call sites read in the direction of the data flow.
func Deobfuscate(data []byte) []byte {
	return Obfuscate(data)
}

// EncryptStream applies the autokey XOR encoding used on the TCP control
// channel: each plaintext byte is XORed with the previous ciphertext
// byte, starting from XORKey.
func EncryptStream(plain []byte) []byte {
	out := make([]byte, len(plain))
	key := XORKey
	for i, b := range plain {
		out[i] = b ^ key
		key = out[i]
	}
	return out
}

// DecryptStream reverses EncryptStream.
func DecryptStream(cipher []byte) []byte {
	out := make([]byte, len(cipher))
	key := XORKey
	for i, b := range cipher {
		out[i] = b ^ key
		key = b
	}
	return out
}

// WriteFrame writes one control-channel frame: a 4-byte big-endian
// payload length followed by the autokey-encrypted payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(EncryptStream(payload)); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one control-channel frame and returns the decrypted
// payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame length %d exceeds maximum %d", size, MaxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return DecryptStream(payload), nil
}
