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

package derive_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/avatarlab/thumbcache/derive"
)

// writeBasePNG writes a real width x height PNG under dir as '<hash>.png'.
func writeBasePNG(t *testing.T, dir, hash string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, hash+".png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create base image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode base image: %v", err)
	}
	return path
}

// writeBaseJPEG writes a real width x height JPEG under dir as '<hash>.jpg'.
func writeBaseJPEG(t *testing.T, dir, hash string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	path := filepath.Join(dir, hash+".jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create base image: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("failed to encode base image: %v", err)
	}
	return path
}

func decodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open derivative: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode derivative: %v", err)
	}
	return img.Bounds()
}

func Test_ComposeNames(t *testing.T) {
	g := NewWithT(t)

	g.Expect(derive.ComposeResizedName("abc", "bust", 150, 150, "png")).
		To(Equal("abc_bust_150x150.png"))
	g.Expect(derive.ComposeResizedName("abc", "bust", 420, 800, "JPEG")).
		To(Equal("abc_bust_420x800.jpg"))
	g.Expect(derive.ComposeResizedName("abc", "bust", 150, 150, "")).
		To(Equal("abc_bust_150x150.png"))
	g.Expect(derive.ComposeConvertedName("abc", "bust", "jpg")).
		To(Equal("abc_bust.jpg"))
	g.Expect(derive.ComposeConvertedName("abc", "bust", "webp")).
		To(Equal("abc_bust.png"))
}

func Test_EnsureResized(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeBasePNG(t, dir, "deadbeef", 10, 10)

	got, err := derive.EnsureResized(context.Background(), dir, "deadbeef", "bust", 4, 5, "png")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(filepath.Base(got)).To(Equal("deadbeef_bust_4x5.png"))

	bounds := decodeBounds(t, got)
	g.Expect(bounds.Dx()).To(Equal(4))
	g.Expect(bounds.Dy()).To(Equal(5))
}

func Test_EnsureResized_ReadThrough(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	basePath := writeBasePNG(t, dir, "deadbeef", 10, 10)

	first, err := derive.EnsureResized(context.Background(), dir, "deadbeef", "bust", 4, 4, "png")
	g.Expect(err).NotTo(HaveOccurred())

	fi, err := os.Stat(first)
	g.Expect(err).NotTo(HaveOccurred())
	firstMtime := fi.ModTime()

	// Removing the base proves the second call never touches it.
	g.Expect(os.Remove(basePath)).To(Succeed())

	second, err := derive.EnsureResized(context.Background(), dir, "deadbeef", "bust", 4, 4, "png")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(second).To(Equal(first))

	fi, err = os.Stat(second)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fi.ModTime()).To(Equal(firstMtime))
}

func Test_EnsureResized_JPEGBase(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeBaseJPEG(t, dir, "cafe01", 8, 8)

	got, err := derive.EnsureResized(context.Background(), dir, "cafe01", "bust", 3, 3, "jpeg")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(filepath.Base(got)).To(Equal("cafe01_bust_3x3.jpg"))

	bounds := decodeBounds(t, got)
	g.Expect(bounds.Dx()).To(Equal(3))
	g.Expect(bounds.Dy()).To(Equal(3))
}

func Test_EnsureResized_MissingBaseSentinel(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()

	got, err := derive.EnsureResized(context.Background(), dir, "missing", "bust", 4, 4, "png")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(filepath.Join(dir, "missing.png")))

	// The sentinel path must not exist; the caller decides the fallback.
	_, statErr := os.Stat(got)
	g.Expect(os.IsNotExist(statErr)).To(BeTrue())
}

func Test_EnsureResized_InvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		outputDir string
		baseHash  string
		width     int
		height    int
	}{
		{name: "empty output dir", outputDir: "", baseHash: "abc", width: 10, height: 10},
		{name: "empty base hash", outputDir: "/tmp", baseHash: "", width: 10, height: 10},
		{name: "zero width", outputDir: "/tmp", baseHash: "abc", width: 0, height: 10},
		{name: "negative height", outputDir: "/tmp", baseHash: "abc", width: 10, height: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			_, err := derive.EnsureResized(context.Background(), tt.outputDir, tt.baseHash, "bust", tt.width, tt.height, "png")
			g.Expect(err).To(HaveOccurred())

			var argErr *derive.ArgumentError
			g.Expect(errors.As(err, &argErr)).To(BeTrue())
		})
	}
}

func Test_EnsureConverted_PNGShortCircuit(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	basePath := writeBasePNG(t, dir, "deadbeef", 6, 6)

	got, err := derive.EnsureConverted(context.Background(), dir, "deadbeef", "bust", "png")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(basePath))

	// No derivative file gets created for the short-circuit.
	entries, err := os.ReadDir(dir)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entries).To(HaveLen(1))
}

func Test_EnsureConverted_ToJPEG(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeBasePNG(t, dir, "deadbeef", 6, 7)

	got, err := derive.EnsureConverted(context.Background(), dir, "deadbeef", "bust", "jpeg")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(filepath.Base(got)).To(Equal("deadbeef_bust.jpg"))

	// Conversion keeps the original resolution.
	bounds := decodeBounds(t, got)
	g.Expect(bounds.Dx()).To(Equal(6))
	g.Expect(bounds.Dy()).To(Equal(7))
}

func Test_EnsureConverted_MissingBaseSentinel(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()

	got, err := derive.EnsureConverted(context.Background(), dir, "missing", "bust", "jpg")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(filepath.Join(dir, "missing.png")))

	_, statErr := os.Stat(got)
	g.Expect(os.IsNotExist(statErr)).To(BeTrue())
}

func Test_EnsureResized_Cancelled(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeBasePNG(t, dir, "deadbeef", 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := derive.EnsureResized(ctx, dir, "deadbeef", "bust", 4, 4, "png")
	g.Expect(err).To(HaveOccurred())
	g.Expect(errors.Is(err, context.Canceled)).To(BeTrue())
}
