package pdfops

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/cppla/pdftoolkit/utils"
)

// Compression levels accepted by Compress.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// CompressResult reports sizes before and after optimisation.
type CompressResult struct {
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"` // percent saved, two decimals
	SizeReduction    int64   `json:"size_reduction"`
}

// NormalizeLevel maps an arbitrary level string to one of the known levels; unknown is medium.
func NormalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelLow:
		return LevelLow
	case LevelHigh:
		return LevelHigh
	default:
		return LevelMedium
	}
}

func compressConf(level string) *model.Configuration {
	conf := newConf()
	switch level {
	case LevelLow:
		// classic xref table, no object streams
		conf.WriteObjectStream = false
		conf.WriteXRefStream = false
		conf.OptimizeResourceDicts = false
		conf.OptimizeDuplicateContentStreams = false
	case LevelHigh:
		conf.WriteObjectStream = true
		conf.WriteXRefStream = true
		conf.OptimizeResourceDicts = true
		conf.OptimizeDuplicateContentStreams = true
	default:
		conf.WriteObjectStream = true
		conf.WriteXRefStream = true
		conf.OptimizeResourceDicts = true
		conf.OptimizeDuplicateContentStreams = false
	}
	return conf
}

// Compress optimises in into out at the given level.
func (p *Processor) Compress(ctx context.Context, in, out, level string) (CompressResult, error) {
	var res CompressResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	st, err := os.Stat(in)
	if err != nil {
		return res, utils.ClassifyProcessingError(err)
	}
	res.OriginalSize = st.Size()

	if err := api.OptimizeFile(in, out, compressConf(NormalizeLevel(level))); err != nil {
		return res, utils.ProcessingError(utils.CodeCompressFailed, "Failed to compress PDF", err)
	}

	res.CompressedSize = fileSize(out)
	res.SizeReduction = res.OriginalSize - res.CompressedSize
	if res.OriginalSize > 0 {
		ratio := float64(res.SizeReduction) / float64(res.OriginalSize) * 100
		res.CompressionRatio = math.Round(ratio*100) / 100
	}
	return res, nil
}
