package pdfops

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/cppla/pdftoolkit/utils"
)

// EmptyPasswordLabel is reported when a document opened with the empty password.
const EmptyPasswordLabel = "[empty password]"

// CommonPasswords are tried in order when no password is supplied.
var CommonPasswords = []string{
	"", "123456", "password", "123456789", "12345678",
	"abc123", "Password", "123123", "admin", "user",
	"1234", "12345", "qwerty", "letmein", "welcome",
}

// UnlockResult describes a successful decryption.
type UnlockResult struct {
	PagesUnlocked int    `json:"pages_unlocked"`
	PasswordFound string `json:"password_found,omitempty"`
	FileSize      int64  `json:"file_size"`
}

var (
	errNotProtected     = utils.ValidationError(utils.CodeUnlockFailed, "PDF file is not password protected")
	errWrongPassword    = utils.ValidationError(utils.CodeUnlockFailed, "Incorrect password provided")
	errNoCommonPassword = utils.ValidationError(utils.CodeUnlockFailed, "Could not unlock PDF with common passwords")
)

// Unlock removes the encryption of in using password and writes the result to out.
func (p *Processor) Unlock(ctx context.Context, in, out, password string) (UnlockResult, error) {
	var res UnlockResult
	encrypted, err := p.IsEncrypted(ctx, in)
	if err != nil {
		return res, err
	}
	if !encrypted {
		return res, errNotProtected
	}
	if err := decrypt(in, out, password); err != nil {
		if isWrongPassword(err) {
			return res, errWrongPassword
		}
		return res, utils.ProcessingError(utils.CodeUnlockFailed, "Failed to unlock PDF", err)
	}
	return p.unlocked(ctx, out, "")
}

// TryCommonPasswords attempts extra passwords first, then CommonPasswords.
func (p *Processor) TryCommonPasswords(ctx context.Context, in, out string, extra ...string) (UnlockResult, error) {
	var res UnlockResult
	encrypted, err := p.IsEncrypted(ctx, in)
	if err != nil {
		return res, err
	}
	if !encrypted {
		return res, errNotProtected
	}

	candidates := append(append([]string{}, extra...), CommonPasswords...)
	for _, pw := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := decrypt(in, out, pw); err != nil {
			_ = os.Remove(out)
			continue
		}
		label := pw
		if label == "" {
			label = EmptyPasswordLabel
		}
		return p.unlocked(ctx, out, label)
	}
	return res, errNoCommonPassword
}

// IsEncrypted reports whether the document at path carries an encryption dictionary.
func (p *Processor) IsEncrypted(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		return false, utils.ClassifyProcessingError(err)
	}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		if isWrongPassword(err) {
			return true, nil
		}
		return false, utils.ProcessingError(utils.CodeProcessing, "Failed to read PDF", err)
	}
	return pdfCtx.Encrypt != nil, nil
}

func (p *Processor) unlocked(ctx context.Context, out, label string) (UnlockResult, error) {
	pages, err := p.PageCount(ctx, out)
	if err != nil {
		return UnlockResult{}, utils.ProcessingError(utils.CodeUnlockFailed, "Failed to unlock PDF", err)
	}
	return UnlockResult{PagesUnlocked: pages, PasswordFound: label, FileSize: fileSize(out)}, nil
}

func decrypt(in, out, password string) error {
	conf := newConf()
	conf.UserPW = password
	conf.OwnerPW = password
	return api.DecryptFile(in, out, conf)
}

// Encrypt protects in with AES-256 using the given passwords. It backs the lock flow of the CLI and tests.
func Encrypt(in, out, userPW, ownerPW string) error {
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	return api.EncryptFile(in, out, conf)
}

func isWrongPassword(err error) bool {
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "password")
}
