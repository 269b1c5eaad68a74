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

// Package derive lazily materializes resized and reformatted derivatives of
// base artifacts. Derivative names are a pure function of
// (baseHash, variant, width, height, format), so a derivative is computed at
// most once and later requests resolve to the existing file.
package derive

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/avatarlab/thumbcache/imgformat"
)

// jpegQuality is the encoder quality used for JPEG derivatives.
const jpegQuality = 90

// ArgumentError is returned when a derivative request carries an empty
// required string or a non-positive dimension.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

// ComposeResizedName returns the derivative file name for a resize,
// '<baseHash>_<variant>_<width>x<height>.<ext>'.
func ComposeResizedName(baseHash, variant string, width, height int, format string) string {
	ext := imgformat.Normalize(format).Ext()
	return fmt.Sprintf("%s_%s_%dx%d.%s", baseHash, variant, width, height, ext)
}

// ComposeConvertedName returns the derivative file name for a format-only
// conversion, '<baseHash>_<variant>.<ext>'.
func ComposeConvertedName(baseHash, variant, format string) string {
	ext := imgformat.Normalize(format).Ext()
	return fmt.Sprintf("%s_%s.%s", baseHash, variant, ext)
}

// EnsureResized returns the path of the derivative resampled to exactly
// width x height pixels in the requested format, materializing it from the
// base artifact on first request. If the derivative already exists its path
// is returned without touching the base image. If the base artifact does not
// exist, the non-existent PNG base path is returned as a sentinel; callers
// must check existence and choose their own fallback.
func EnsureResized(ctx context.Context, outputDir, baseHash, variant string, width, height int, format string) (string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return "", &ArgumentError{Name: "outputDir", Reason: "required"}
	}
	if strings.TrimSpace(baseHash) == "" {
		return "", &ArgumentError{Name: "baseHash", Reason: "required"}
	}
	if width <= 0 || height <= 0 {
		return "", &ArgumentError{Name: "width/height", Reason: "must be positive"}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	derivedPath := filepath.Join(outputDir, ComposeResizedName(baseHash, variant, width, height, format))
	if fileExists(derivedPath) {
		return derivedPath, nil
	}

	basePath, ok := resolveBase(outputDir, baseHash)
	if !ok {
		// Missing base: hand the caller the sentinel path.
		return basePath, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := decodeImage(basePath)
	if err != nil {
		return "", err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	if err := encodeImage(ctx, derivedPath, dst, imgformat.Normalize(format)); err != nil {
		return "", err
	}
	return derivedPath, nil
}

// EnsureConverted returns the path of the base artifact re-encoded into the
// requested format at its original resolution. Requesting PNG for a base
// that is already a PNG file short-circuits to the base path itself, with no
// re-encode and no new file. Existence and sentinel semantics match
// EnsureResized.
func EnsureConverted(ctx context.Context, outputDir, baseHash, variant, format string) (string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return "", &ArgumentError{Name: "outputDir", Reason: "required"}
	}
	if strings.TrimSpace(baseHash) == "" {
		return "", &ArgumentError{Name: "baseHash", Reason: "required"}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	basePath, _ := resolveBase(outputDir, baseHash)
	target := imgformat.Normalize(format)
	if target == imgformat.PNG && strings.EqualFold(filepath.Ext(basePath), ".png") {
		return basePath, nil
	}

	derivedPath := filepath.Join(outputDir, ComposeConvertedName(baseHash, variant, format))
	if fileExists(derivedPath) {
		return derivedPath, nil
	}
	if !fileExists(basePath) {
		return basePath, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := decodeImage(basePath)
	if err != nil {
		return "", err
	}
	if err := encodeImage(ctx, derivedPath, src, target); err != nil {
		return "", err
	}
	return derivedPath, nil
}

// decodeImage opens and decodes the base artifact at path.
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open base artifact: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base artifact %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// encodeImage writes img to path in the given format, removing the partial
// file on failure. Regeneration of the same derivative tuple is idempotent,
// so this path does not need the temp-and-rename commit the base store uses.
func encodeImage(ctx context.Context, path string, img image.Image, format imgformat.Format) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create derivative: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	switch format {
	case imgformat.JPEG:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode derivative: %w", err)
	}
	return nil
}
