package main

import (
	"net/http"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// ControllerURL builds the link a phone opens to join a match
func ControllerURL(base, token string) string {
	base = strings.TrimRight(base, "/")
	return base + "/?token=" + url.QueryEscape(token)
}

// QRCodePNG renders content as a PNG QR code
func QRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = qrSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// requestBaseURL guesses the public base URL from the request when none is configured
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}
