package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	ivLength  = aes.BlockSize
	keyLength = 16 // AES-128
)

var (
	ErrShortKey        = errors.New("encryption key must be at least 16 bytes")
	ErrShortCiphertext = errors.New("ciphertext shorter than iv")
)

// Box encrypts short strings with AES-128-CTR. The key is the first 16 bytes of
// the configured secret and the output is base64(iv || ciphertext), which the
// check-in service can decrypt with the same secret.
type Box struct {
	key  []byte
	rand io.Reader
}

func NewBox(secret string) (*Box, error) {
	if len(secret) < keyLength {
		return nil, ErrShortKey
	}
	return &Box{key: []byte(secret)[:keyLength], rand: rand.Reader}, nil
}

func (b *Box) Encrypt(text string) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}

	out := make([]byte, ivLength+len(text))
	iv := out[:ivLength]
	if _, err := io.ReadFull(b.rand, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	cipher.NewCTR(block, iv).XORKeyStream(out[ivLength:], []byte(text))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(data) < ivLength {
		return "", ErrShortCiphertext
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(data)-ivLength)
	cipher.NewCTR(block, data[:ivLength]).XORKeyStream(plain, data[ivLength:])
	return string(plain), nil
}
