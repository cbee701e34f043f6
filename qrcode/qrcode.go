// Package qrcode reads otpauth:// payloads from QR code images and renders
// secrets back as QR codes for export.
package qrcode

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	skipqrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

var (
	ErrUnsupportedImage = errors.New("qrcode: only .jpg, .jpeg and .png images are supported")
	ErrNoOTPAuthCode    = errors.New("qrcode: no otpauth:// QR code found in image")
	ErrEmptyContent     = errors.New("qrcode: content cannot be empty")
)

var supportedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Scan decodes the QR code in the image at path and returns its text when it
// is an otpauth:// URL.
func Scan(path string) (string, error) {
	if !supportedExt[strings.ToLower(filepath.Ext(path))] {
		return "", ErrUnsupportedImage
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("qrcode: decode image: %w", err)
	}
	return scanImage(img)
}

func scanImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qrcode: prepare bitmap: %w", err)
	}
	res, err := zxqrcode.NewQRCodeReader().Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", errors.Join(ErrNoOTPAuthCode, err)
	}
	text := strings.TrimSpace(res.GetText())
	if !strings.HasPrefix(strings.ToLower(text), "otpauth://") {
		return "", ErrNoOTPAuthCode
	}
	return text, nil
}

// Render returns content as a QR code drawn with terminal block characters.
func Render(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	q, err := skipqrcode.New(content, skipqrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qrcode: encode: %w", err)
	}
	return q.ToSmallString(false), nil
}

// WritePNG writes content as a size x size PNG readable only by the owner.
func WritePNG(content, path string, size int) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return fmt.Errorf("qrcode: encode: %w", err)
	}
	return os.WriteFile(path, png, 0o600)
}
