// Package pdftest builds small documents and images for tests.
package pdftest

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// PNG writes a w x h solid image and returns its path.
func PNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, solid(w, h)))
	return path
}

// BMP writes a w x h solid bitmap and returns its path.
func BMP(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, bmp.Encode(f, solid(w, h)))
	return path
}

// PDF writes a document with the given number of pages and returns its path.
func PDF(t testing.TB, dir, name string, pages int) string {
	t.Helper()
	api.DisableConfigDir()
	imgDir := t.TempDir()
	imgs := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		imgs = append(imgs, PNG(t, imgDir, fmt.Sprintf("p%d.png", i), 20+i, 20))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, api.ImportImagesFile(imgs, path, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()))
	return path
}

// EncryptedPDF writes a document protected with password (user and owner) and returns its path.
func EncryptedPDF(t testing.TB, dir, name string, pages int, password string) string {
	t.Helper()
	plain := PDF(t, t.TempDir(), "plain.pdf", pages)
	path := filepath.Join(dir, name)
	conf := model.NewAESConfiguration(password, password, 256)
	require.NoError(t, api.EncryptFile(plain, path, conf))
	return path
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return img
}
