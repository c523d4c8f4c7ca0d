// Package qr renders session identifiers as scannable QR images.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// DataURL encodes content as a QR PNG and returns it as a base64 data URL
// ready for an <img> tag.
func DataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, defaultSize)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
