package protocol

import (
	"crypto/aes"

	"github.com/pkg/errors"
)

// SessionKeySize is the effective AES key length. Keys shorter than this
// are zero-padded; longer keys are truncated.
const SessionKeySize = 16

var (
	ErrBadPadding    = errors.New("protocol: invalid PKCS7 padding")
	ErrBadCiphertext = errors.New("protocol: ciphertext not block-aligned")
)

// NormalizeKey returns the 16-byte effective key for key material of any
// length. The device derives its rotating session keys the same way.
func NormalizeKey(key []byte) []byte {
	out := make([]byte, SessionKeySize)
	copy(out, key)
	return out
}

// EncryptECB encrypts plain with AES-ECB and PKCS7 padding under the
// normalized key.
func EncryptECB(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(NormalizeKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return out, nil
}

// DecryptECB decrypts AES-ECB ciphertext and strips PKCS7 padding.
func DecryptECB(cipher, key []byte) ([]byte, error) {
	if len(cipher) == 0 || len(cipher)%aes.BlockSize != 0 {
		return nil, ErrBadCiphertext
	}

	block, err := aes.NewCipher(NormalizeKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	out := make([]byte, len(cipher))
	for i := 0; i < len(cipher); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], cipher[i:i+aes.BlockSize])
	}
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-pad], nil
}
