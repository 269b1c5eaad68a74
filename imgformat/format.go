/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package imgformat classifies raw image bytes by signature and normalizes
// caller-supplied format strings. Only PNG and JPEG are distinguished; on
// ambiguity both classification and normalization default to PNG.
package imgformat

import (
	"bytes"
	"strings"
)

// Format identifies the encoding of an image artifact. Its string value is
// also the file extension used in artifact names.
type Format string

const (
	// PNG is the Portable Network Graphics format, and the default when
	// bytes or format strings cannot be classified otherwise.
	PNG Format = "png"
	// JPEG uses the "jpg" extension for compatibility with existing
	// artifact names.
	JPEG Format = "jpg"
)

// pngMagic is the 8-byte PNG file signature.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// jpegMagic is the 2-byte JPEG SOI marker.
var jpegMagic = []byte{0xFF, 0xD8}

// Detect classifies raw bytes by their signature, ignoring any caller-supplied
// content type hints. Bytes that are neither PNG nor JPEG classify as PNG.
func Detect(b []byte) Format {
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return PNG
	case bytes.HasPrefix(b, jpegMagic):
		return JPEG
	default:
		return PNG
	}
}

// Normalize maps a caller-supplied format string to a Format.
// "jpeg" and "jpg" map to JPEG regardless of case; anything else,
// including the empty string, maps to PNG.
func Normalize(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return JPEG
	default:
		return PNG
	}
}

// Ext returns the file extension for the format, without a leading dot.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}
