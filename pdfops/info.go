package pdfops

import (
	"context"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/utils"
)

// Info summarises a document for the pdf-info endpoint.
type Info struct {
	Pages          int               `json:"pages"`
	Encrypted      bool              `json:"encrypted"`
	IsEncrypted    bool              `json:"is_encrypted"`
	Title          string            `json:"title"`
	Author         string            `json:"author"`
	FileSize       int64             `json:"file_size"`
	CanExtractText bool              `json:"can_extract_text"`
	CanPrint       bool              `json:"can_print"`
	CanModify      bool              `json:"can_modify"`
	EncryptionType string            `json:"encryption_type,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

const unknown = "Unknown"

// Inspect reads page count, document info and encryption state of path.
// Encrypted documents that cannot be opened report zero pages and no metadata.
func (p *Processor) Inspect(ctx context.Context, path string) (Info, error) {
	info := Info{Title: unknown, Author: unknown}
	if err := ctx.Err(); err != nil {
		return info, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return info, utils.ClassifyProcessingError(err)
	}
	info.FileSize = st.Size()

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		if !isWrongPassword(err) {
			return info, utils.ProcessingError(utils.CodeProcessing, "Failed to read PDF", err)
		}
		markEncrypted(&info)
		return info, nil
	}

	info.Pages = pdfCtx.PageCount
	if pdfCtx.Title != "" {
		info.Title = pdfCtx.Title
	}
	if pdfCtx.Author != "" {
		info.Author = pdfCtx.Author
	}
	if pdfCtx.Encrypt != nil {
		markEncrypted(&info)
		return info, nil
	}

	info.CanExtractText, info.CanPrint, info.CanModify = true, true, true
	info.Metadata = map[string]string{}
	for k, v := range map[string]string{
		"Title":    pdfCtx.Title,
		"Author":   pdfCtx.Author,
		"Subject":  pdfCtx.Subject,
		"Creator":  pdfCtx.Creator,
		"Producer": pdfCtx.Producer,
	} {
		if v != "" {
			info.Metadata[k] = v
		}
	}
	if f, err := os.Open(path); err == nil {
		props, err := api.Properties(f, newConf())
		f.Close()
		if err != nil {
			p.log().Debug("reading properties failed", zap.String("path", path), zap.Error(err))
		}
		for k, v := range props {
			info.Metadata[k] = v
		}
	}
	return info, nil
}

func markEncrypted(info *Info) {
	info.Encrypted = true
	info.IsEncrypted = true
	info.EncryptionType = "Standard PDF encryption"
	info.CanExtractText, info.CanPrint, info.CanModify = false, false, false
}
