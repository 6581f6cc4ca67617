package controllers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/middleware"
	"github.com/cppla/pdftoolkit/models"
	"github.com/cppla/pdftoolkit/pdfops"
	"github.com/cppla/pdftoolkit/utils"
)

// PDFController serves the processing endpoints under /api.
type PDFController struct {
	cfg  config.AppConfig
	proc *pdfops.Processor
}

// NewPDFController creates a new PDFController instance.
func NewPDFController(cfg config.AppConfig, proc *pdfops.Processor) *PDFController {
	return &PDFController{cfg: cfg, proc: proc}
}

func (p *PDFController) limits() config.Limits { return p.cfg.Limits() }

func (p *PDFController) ttl() time.Duration {
	return time.Duration(p.cfg.FileTTLMinutes) * time.Minute
}

// begin tags the request for the operation recorder and parses the multipart form.
func (p *PDFController) begin(ctx *gin.Context, op string) (*multipart.Form, bool) {
	ctx.Set(utils.ContextOperationKey, op)
	form, err := ctx.MultipartForm()
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.TooLarge(ctx)
			return nil, false
		}
		// no multipart body at all; handlers report the missing file field
		return &multipart.Form{Value: map[string][]string{}, File: map[string][]*multipart.FileHeader{}}, true
	}
	return form, true
}

func formValue(form *multipart.Form, key, def string) string {
	if vs := form.Value[key]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
		return strings.TrimSpace(vs[0])
	}
	return def
}

// singlePDF validates and stores the "file" field.
func (p *PDFController) singlePDF(ctx *gin.Context, form *multipart.Form) (string, bool) {
	files := form.File["file"]
	if len(files) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeNoFile, "No file uploaded"))
		return "", false
	}
	ctx.Set(utils.ContextFileCountKey, 1)
	up, verr := utils.ValidateUpload(files[0], p.limits().PDFExtensions, p.limits())
	if verr != nil {
		utils.Fail(ctx, 0, verr)
		return "", false
	}
	path, err := p.store(ctx, up)
	if err != nil {
		utils.Error(ctx, err)
		return "", false
	}
	return path, true
}

func (p *PDFController) store(ctx *gin.Context, up *utils.Upload) (string, error) {
	path, err := utils.SaveUpload(ctx, up, p.cfg.UploadDir)
	if err != nil {
		return "", err
	}
	utils.RecordArtifact(path, models.ArtifactUpload, p.ttl())
	return path, nil
}

// outputPath names a fresh output file and makes sure the output folder exists.
func (p *PDFController) outputPath(prefix, ext string) (string, string) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		utils.L().Warn("create output folder failed", zap.String("dir", p.cfg.OutputDir), zap.Error(err))
	}
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
	return name, filepath.Join(p.cfg.OutputDir, name)
}

// downloadURL builds the public URL of an output, signed when a signing key is configured.
func (p *PDFController) downloadURL(filename string) string {
	url := "/download/" + filename
	if p.cfg.DownloadSigningKey == "" {
		return url
	}
	token, err := utils.GenerateDownloadToken(p.cfg.DownloadSigningKey, filename, p.ttl())
	if err != nil {
		utils.L().Warn("sign download url failed", zap.String("file", filename), zap.Error(err))
		return url
	}
	return url + "?token=" + token
}

func (p *PDFController) finish(ctx *gin.Context, filename string, extra gin.H) {
	utils.RecordArtifact(filepath.Join(p.cfg.OutputDir, filename), models.ArtifactOutput, p.ttl())
	body := gin.H{
		"download_url": p.downloadURL(filename),
		"filename":     filename,
	}
	for k, v := range extra {
		body[k] = v
	}
	utils.Success(ctx, body)
}

// Merge combines 2-10 PDFs, optionally restricted per file by page_ranges.
func (p *PDFController) Merge(ctx *gin.Context) {
	form, ok := p.begin(ctx, "merge")
	if !ok {
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeNoFiles, "No files uploaded"))
		return
	}
	ctx.Set(utils.ContextFileCountKey, len(files))

	valid, problems, verr := utils.ValidateUploads(files, p.limits().PDFExtensions, p.limits())
	if verr != nil {
		utils.Fail(ctx, 0, verr)
		return
	}
	if len(valid) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeValidation, strings.Join(problems, "; ")))
		return
	}
	if len(valid) < 2 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeInsufficientFiles, "At least 2 valid PDF files required"))
		return
	}

	paths := make([]string, 0, len(valid))
	for _, up := range valid {
		path, err := p.store(ctx, up)
		if err != nil {
			utils.Error(ctx, err)
			return
		}
		paths = append(paths, path)
	}

	name, out := p.outputPath("merged", ".pdf")
	ranges := ParseMergeRanges(formValue(form, "page_ranges", ""))
	if err := p.proc.Merge(ctx.Request.Context(), paths, ranges, out); err != nil {
		utils.Error(ctx, err)
		return
	}
	p.finish(ctx, name, gin.H{"files_merged": len(paths)})
}

// ParseMergeRanges splits the page_ranges field into one selection per file.
// Selections are separated by ';' when present, otherwise by ','; blanks mean all pages.
func ParseMergeRanges(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	parts := strings.Split(raw, sep)
	out := make([]string, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			part = "all"
		}
		out[i] = part
	}
	return out
}

// Split divides one PDF by page count, by explicit ranges or into single pages, and zips the parts.
func (p *PDFController) Split(ctx *gin.Context) {
	form, ok := p.begin(ctx, "split")
	if !ok {
		return
	}
	in, ok := p.singlePDF(ctx, form)
	if !ok {
		return
	}

	workDir := filepath.Join(p.cfg.OutputDir, "split_"+uuid.NewString())
	defer os.RemoveAll(workDir)

	var (
		created []string
		err     error
		rctx    = ctx.Request.Context()
	)
	switch splitType := formValue(form, "split_type", "pages"); splitType {
	case "pages":
		perFile, convErr := strconv.Atoi(formValue(form, "pages_per_file", "1"))
		if convErr != nil {
			utils.Fail(ctx, 0, utils.ValidationError(utils.CodeInvalidPageRange, "Invalid pages per file"))
			return
		}
		created, err = p.proc.SplitByPageCount(rctx, in, workDir, perFile)
	case "ranges":
		raw := formValue(form, "page_ranges", "")
		if raw == "" {
			utils.Fail(ctx, 0, utils.ValidationError(utils.CodeInvalidPageRange, "Page ranges required"))
			return
		}
		ranges, perr := ParseSplitRanges(raw)
		if perr != nil {
			utils.Error(ctx, perr)
			return
		}
		created, err = p.proc.SplitByRanges(rctx, in, workDir, ranges)
	default:
		created, err = p.proc.SplitPages(rctx, in, workDir)
	}
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	if len(created) == 0 {
		utils.Fail(ctx, 0, utils.ProcessingError(utils.CodeSplitFailed, "Failed to split PDF", nil))
		return
	}

	name, out := p.outputPath("split_pdfs", ".zip")
	if err := pdfops.ZipFiles(created, out); err != nil {
		utils.Error(ctx, err)
		return
	}
	p.finish(ctx, name, gin.H{"files_created": len(created)})
}

// ParseSplitRanges turns "1-3,5" into named ranges: range_<i> for spans, page_<n> for single pages.
func ParseSplitRanges(raw string) ([]pdfops.SplitRange, error) {
	var ranges []pdfops.SplitRange
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, b, found := strings.Cut(part, "-"); found {
			start, err1 := strconv.Atoi(strings.TrimSpace(a))
			end, err2 := strconv.Atoi(strings.TrimSpace(b))
			if err1 != nil || err2 != nil {
				return nil, utils.ValidationError(utils.CodeInvalidPageRange, fmt.Sprintf("Invalid page range format: %s", part))
			}
			ranges = append(ranges, pdfops.SplitRange{Start: start, End: end, Name: fmt.Sprintf("range_%d", i+1)})
			continue
		}
		page, err := strconv.Atoi(part)
		if err != nil {
			return nil, utils.ValidationError(utils.CodeInvalidPageNumber, fmt.Sprintf("Invalid page number: %s", part))
		}
		ranges = append(ranges, pdfops.SplitRange{Start: page, End: page, Name: fmt.Sprintf("page_%d", page)})
	}
	if len(ranges) == 0 {
		return nil, utils.ValidationError(utils.CodeNoPages, "No valid pages specified")
	}
	return ranges, nil
}

// Compress optimises one PDF at compression_level low, medium or high.
func (p *PDFController) Compress(ctx *gin.Context) {
	form, ok := p.begin(ctx, "compress")
	if !ok {
		return
	}
	in, ok := p.singlePDF(ctx, form)
	if !ok {
		return
	}

	level := pdfops.NormalizeLevel(formValue(form, "compression_level", pdfops.LevelMedium))
	name, out := p.outputPath("compressed", ".pdf")
	res, err := p.proc.Compress(ctx.Request.Context(), in, out, level)
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	p.finish(ctx, name, gin.H{
		"compression_level": level,
		"original_size":     res.OriginalSize,
		"compressed_size":   res.CompressedSize,
		"compression_ratio": res.CompressionRatio,
		"size_reduction":    res.SizeReduction,
	})
}

// Convert turns images into one PDF (images_to_pdf) or rasterises a PDF (pdf_to_images).
func (p *PDFController) Convert(ctx *gin.Context) {
	form, ok := p.begin(ctx, "convert")
	if !ok {
		return
	}
	switch formValue(form, "conversion_type", "") {
	case "images_to_pdf":
		p.imagesToPDF(ctx, form)
	case "pdf_to_images":
		p.pdfToImages(ctx, form)
	default:
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeInvalidConversion, "Invalid conversion type"))
	}
}

func (p *PDFController) imagesToPDF(ctx *gin.Context, form *multipart.Form) {
	files := form.File["files"]
	if len(files) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeNoFiles, "No files uploaded"))
		return
	}
	ctx.Set(utils.ContextFileCountKey, len(files))

	valid, _, verr := utils.ValidateUploads(files, p.limits().ImageExtensions, p.limits())
	if verr != nil {
		utils.Fail(ctx, 0, verr)
		return
	}
	if len(valid) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeConvertFailed, "No valid image files found"))
		return
	}

	paths := make([]string, 0, len(valid))
	for _, up := range valid {
		path, err := p.store(ctx, up)
		if err != nil {
			utils.Error(ctx, err)
			return
		}
		paths = append(paths, path)
	}

	name, out := p.outputPath("converted", ".pdf")
	res, err := p.proc.ImagesToPDF(ctx.Request.Context(), paths, out)
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	p.finish(ctx, name, gin.H{
		"images_processed": res.ImagesProcessed,
		"file_size":        res.FileSize,
	})
}

func (p *PDFController) pdfToImages(ctx *gin.Context, form *multipart.Form) {
	in, ok := p.singlePDF(ctx, form)
	if !ok {
		return
	}
	dpi, err := strconv.Atoi(formValue(form, "dpi", "200"))
	if err != nil || dpi <= 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeValidation, "Invalid dpi"))
		return
	}
	format := formValue(form, "image_format", "PNG")

	workDir := filepath.Join(p.cfg.OutputDir, "images_"+uuid.NewString())
	defer os.RemoveAll(workDir)
	res, err := p.proc.PDFToImages(ctx.Request.Context(), in, workDir, format, dpi)
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	if res.PagesConverted == 0 {
		utils.Fail(ctx, 0, utils.ProcessingError(utils.CodeConvertFailed, "Failed to convert PDF to images", nil))
		return
	}

	name, out := p.outputPath("images", ".zip")
	if err := pdfops.ZipFiles(res.OutputFiles, out); err != nil {
		utils.Error(ctx, err)
		return
	}
	p.finish(ctx, name, gin.H{
		"pages_converted": res.PagesConverted,
		"image_format":    strings.ToUpper(format),
		"dpi":             dpi,
	})
}

// Unlock removes password protection using the supplied password or the common password list.
func (p *PDFController) Unlock(ctx *gin.Context) {
	form, ok := p.begin(ctx, "unlock")
	if !ok {
		return
	}
	in, ok := p.singlePDF(ctx, form)
	if !ok {
		return
	}

	name, out := p.outputPath("unlocked", ".pdf")
	var (
		res pdfops.UnlockResult
		err error
	)
	// the password is taken verbatim; whitespace may be part of it
	if vs := form.Value["password"]; len(vs) > 0 && vs[0] != "" {
		res, err = p.proc.Unlock(ctx.Request.Context(), in, out, vs[0])
	} else {
		res, err = p.proc.TryCommonPasswords(ctx.Request.Context(), in, out)
	}
	if err != nil {
		utils.Error(ctx, err)
		return
	}

	extra := gin.H{
		"pages_unlocked": res.PagesUnlocked,
		"file_size":      res.FileSize,
	}
	if res.PasswordFound != "" {
		extra["password_found"] = res.PasswordFound
	}
	p.finish(ctx, name, extra)
}

// Info reports page count, metadata and encryption state of one PDF. Results are cached by content.
func (p *PDFController) Info(ctx *gin.Context) {
	form, ok := p.begin(ctx, "pdf-info")
	if !ok {
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		utils.Fail(ctx, 0, utils.ValidationError(utils.CodeNoFile, "No file uploaded"))
		return
	}
	ctx.Set(utils.ContextFileCountKey, 1)
	up, verr := utils.ValidateUpload(files[0], p.limits().PDFExtensions, p.limits())
	if verr != nil {
		utils.Fail(ctx, 0, verr)
		return
	}

	cacheKey := ""
	if f, err := up.Header.Open(); err == nil {
		if sum, err := utils.Fingerprint(f); err == nil {
			cacheKey = "cache:pdfinfo:" + sum
		}
		f.Close()
	}
	if cacheKey != "" {
		var cached pdfops.Info
		if utils.CacheGetJSON(cacheKey, &cached) {
			utils.Success(ctx, gin.H{"info": cached})
			return
		}
	}

	path, err := utils.SaveUpload(ctx, up, p.cfg.UploadDir)
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	defer os.Remove(path)

	info, err := p.proc.Inspect(ctx.Request.Context(), path)
	if err != nil {
		utils.Error(ctx, err)
		return
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, info, p.ttl())
	}
	utils.Success(ctx, gin.H{"info": info})
}
