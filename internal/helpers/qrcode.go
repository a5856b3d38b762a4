package helpers

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRDataURL renders payload as a PNG QR code and returns it as a data URL.
func QRDataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
