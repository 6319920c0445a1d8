// Package qr renders ticket codes as QR images for the details screen.
package qr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"ms-checkin/internal/secret"
)

var ErrEmptyCode = errors.New("ticket code is required")

type Generator struct {
	Level qrcode.RecoveryLevel
	Size  int
	box   *secret.Box
}

// NewGenerator returns a generator for 256px medium-recovery codes. When box
// is non-nil the QR content is the encrypted code, which only the check-in
// service can read back.
func NewGenerator(box *secret.Box) *Generator {
	return &Generator{Level: qrcode.Medium, Size: 256, box: box}
}

// Content is the string encoded in the QR for code.
func (g *Generator) Content(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}
	if g.box == nil {
		return code, nil
	}
	encrypted, err := g.box.Encrypt(code)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt ticket code: %w", err)
	}
	return encrypted, nil
}

// PNG renders code as a PNG image.
func (g *Generator) PNG(code string) ([]byte, error) {
	content, err := g.Content(code)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(content, g.Level, g.Size)
}

// Terminal renders code with half-block characters for a text console.
func (g *Generator) Terminal(code string) (string, error) {
	content, err := g.Content(code)
	if err != nil {
		return "", err
	}
	q, err := qrcode.New(content, g.Level)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}
