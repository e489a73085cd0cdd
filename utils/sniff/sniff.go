// Package sniff detects image content types from raw bytes.
package sniff

import (
	"bytes"
	"encoding/binary"
	"net/http"
	"strings"
)

// sniffWindow is how many leading bytes the SVG text scan examines.
// http.DetectContentType only looks at the first 512 bytes and commonly
// reports SVG as text/xml or text/plain.
const sniffWindow = 4096

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// DetectImageType returns the content type for data. It supplements
// http.DetectContentType with the formats the stdlib table misses:
// AVIF (sniffed as application/octet-stream), APNG (sniffed as plain
// PNG), and SVG (sniffed as text/xml or text/plain).
func DetectImageType(data []byte) string {
	if isAVIF(data) {
		return "image/avif"
	}

	detected := http.DetectContentType(data)
	if detected == "image/png" && isAPNG(data) {
		return "image/apng"
	}
	if strings.HasPrefix(detected, "image/") {
		return detected
	}

	window := data
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	lower := bytes.ToLower(window)
	if bytes.Contains(lower, []byte("<svg")) {
		return "image/svg+xml"
	}

	return detected
}

// isAVIF reports whether data opens with an ISO-BMFF ftyp box carrying
// an AVIF brand. The stdlib sniff table only knows the MP4 brands.
func isAVIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	boxEnd := int(binary.BigEndian.Uint32(data[:4]))
	if boxEnd < 16 || boxEnd > len(data) {
		boxEnd = len(data)
	}
	if boxEnd > sniffWindow {
		boxEnd = sniffWindow
	}
	// Major brand sits at offset 8, compatible brands from 16 onward;
	// offset 12 is the minor version.
	for off := 8; off+4 <= boxEnd; off += 4 {
		if off == 12 {
			continue
		}
		switch string(data[off : off+4]) {
		case "avif", "avis":
			return true
		}
	}
	return false
}

// isAPNG walks the PNG chunk list looking for an acTL chunk ahead of
// the first IDAT, which is what marks an animated PNG.
func isAPNG(data []byte) bool {
	if !bytes.HasPrefix(data, pngSignature) {
		return false
	}
	off := len(pngSignature)
	for off+8 <= len(data) && off < sniffWindow {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		switch string(data[off+4 : off+8]) {
		case "acTL":
			return true
		case "IDAT", "IEND":
			return false
		}
		off += 8 + length + 4
	}
	return false
}

// IsSVG reports whether the content type names an SVG document.
func IsSVG(contentType string) bool {
	return contentType == "image/svg+xml" || contentType == "image/svg"
}
