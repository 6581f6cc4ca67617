package pdfops

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/cppla/pdftoolkit/utils"
)

// ConvertResult describes an images to PDF conversion.
type ConvertResult struct {
	ImagesProcessed int   `json:"images_processed"`
	FileSize        int64 `json:"file_size"`
}

// ImagesResult describes a PDF to images conversion.
type ImagesResult struct {
	PagesConverted  int      `json:"pages_converted"`
	OutputFiles     []string `json:"output_files"`
	OutputDirectory string   `json:"output_directory"`
}

var supportedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".tif": true, ".gif": true,
}

// ImagesToPDF places each image on its own page of out, in the given order.
// Missing files and unsupported extensions are skipped.
func (p *Processor) ImagesToPDF(ctx context.Context, images []string, out string) (ConvertResult, error) {
	var res ConvertResult
	if len(images) == 0 {
		return res, utils.ValidationError(utils.CodeNoFiles, "No image paths provided")
	}

	work, err := os.MkdirTemp(filepath.Dir(out), ".import-*")
	if err != nil {
		return res, utils.ProcessingError(utils.CodeConvertFailed, "Failed to convert images", err)
	}
	defer os.RemoveAll(work)

	var ready []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := os.Stat(img); err != nil {
			continue
		}
		if !supportedImageExt[strings.ToLower(filepath.Ext(img))] {
			continue
		}
		path, err := importable(img, work)
		if err != nil {
			p.log().Warn("skipping unreadable image", zap.String("path", img), zap.Error(err))
			continue
		}
		ready = append(ready, path)
	}
	if len(ready) == 0 {
		return res, utils.ValidationError(utils.CodeConvertFailed, "No valid image files found")
	}

	if err := api.ImportImagesFile(ready, out, pdfcpu.DefaultImportConfig(), newConf()); err != nil {
		return res, utils.ProcessingError(utils.CodeConvertFailed, "Failed to convert images", err)
	}
	res.ImagesProcessed = len(ready)
	res.FileSize = fileSize(out)
	return res, nil
}

// importable returns a path pdfcpu can import directly, transcoding BMP, GIF and TIFF to PNG.
func importable(path, work string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}

	var decode func(f *os.File) (image.Image, error)
	switch {
	case mt.Is("image/jpeg"), mt.Is("image/png"):
		return path, nil
	case mt.Is("image/bmp"):
		decode = func(f *os.File) (image.Image, error) { return bmp.Decode(f) }
	case mt.Is("image/gif"):
		decode = func(f *os.File) (image.Image, error) { return gif.Decode(f) }
	case mt.Is("image/tiff"):
		decode = func(f *os.File) (image.Image, error) { return tiff.Decode(f) }
	default:
		return "", fmt.Errorf("unsupported image type %s", mt.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, err := decode(f)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(work, uuid.NewString()+".png")
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}

// PDFToImages rasterises every page of in into dir using pdftoppm.
// format is PNG (default) or JPEG; dpi defaults to 200.
func (p *Processor) PDFToImages(ctx context.Context, in, dir, format string, dpi int) (ImagesResult, error) {
	res := ImagesResult{OutputDirectory: dir}
	if _, err := os.Stat(in); err != nil {
		return res, utils.ClassifyProcessingError(err)
	}

	tool, err := exec.LookPath(p.pdftoppm)
	if err != nil {
		return res, utils.ProcessingError(utils.CodeConvertFailed,
			"PDF to image conversion requires pdftoppm (poppler-utils) to be installed", err)
	}

	if dpi <= 0 {
		dpi = 200
	}
	flag, ext := "-png", "png"
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "JPEG", "JPG":
		flag, ext = "-jpeg", "jpg"
	case "TIFF", "TIF":
		flag, ext = "-tiff", "tif"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, utils.ClassifyProcessingError(err)
	}
	prefix := filepath.Join(dir, baseName(in)+"_page")
	args := []string{flag, "-r", fmt.Sprint(dpi), in, prefix}

	cmd := exec.CommandContext(ctx, tool, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return res, utils.ProcessingError(utils.CodeConvertFailed, "Failed to convert PDF to images",
			fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output)))
	}

	files, err := filepath.Glob(prefix + "-*." + ext)
	if err != nil {
		return res, utils.ProcessingError(utils.CodeConvertFailed, "Failed to convert PDF to images", err)
	}
	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order
	sort.Strings(files)
	res.OutputFiles = files
	res.PagesConverted = len(files)
	return res, nil
}
