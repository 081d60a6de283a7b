package components

import (
	"encoding/base64"
	"errors"
	"html/template"

	"github.com/skip2/go-qrcode"
)

// QRSize is the rendered edge length of a ticket QR code in pixels
const QRSize = 180

// QRPNG encodes the redemption payload as a PNG with high error correction
func QRPNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty qr payload")
	}
	return qrcode.Encode(payload, qrcode.Highest, QRSize)
}

// QRDataURI returns the QR PNG as a data URI usable in an img src
func QRDataURI(payload string) (template.URL, error) {
	png, err := QRPNG(payload)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
