package util

import (
	"net/http"
	"path/filepath"
	"strings"
)

// SniffImageFormat names the container by magic bytes: "JPEG", "PNG", "GIF", "BMP", "WEBP" or "".
func SniffImageFormat(b []byte) string {
	// JPEG: FF D8
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "JPEG"
	}
	// PNG
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "PNG"
	}
	if len(b) >= 6 && (string(b[:6]) == "GIF87a" || string(b[:6]) == "GIF89a") {
		return "GIF"
	}
	if len(b) >= 2 && b[0] == 'B' && b[1] == 'M' {
		return "BMP"
	}
	if len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP" {
		return "WEBP"
	}
	return ""
}

// SniffMimeHTTP is the Content-Type to label image bytes with.
func SniffMimeHTTP(b []byte) string {
	switch SniffImageFormat(b) {
	case "JPEG":
		return "image/jpeg"
	case "PNG":
		return "image/png"
	case "GIF":
		return "image/gif"
	case "BMP":
		return "image/bmp"
	case "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}

// PickMIME prefers the explicit type, then a hint (e.g. from a response header), then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" && h != "application/octet-stream" {
		return h
	}
	if m := SniffMimeHTTP(data); m != "application/octet-stream" {
		return m
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}

// IsImageName reports whether name (a path or URL) ends in an image extension the vision services accept.
func IsImageName(name string) bool {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// IsImage reports whether b starts with the magic bytes of a supported image format.
func IsImage(b []byte) bool { return SniffImageFormat(b) != "" }
