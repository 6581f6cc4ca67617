package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
)

type formFile struct {
	field string
	file  Candidate
}

// Form is the multipart payload of one submission.
type Form struct {
	fields [][2]string
	files  []formFile
}

func NewForm() *Form { return &Form{} }

// AddBatch attaches every file of b under field.
func (f *Form) AddBatch(field string, b Batch) *Form {
	for _, c := range b.files {
		f.files = append(f.files, formFile{field: field, file: c})
	}
	return f
}

// AddField adds a plain form value. Empty values are kept.
func (f *Form) AddField(name, value string) *Form {
	f.fields = append(f.fields, [2]string{name, value})
	return f
}

// FileCount is the number of attached files.
func (f *Form) FileCount() int { return len(f.files) }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode renders the form and returns the body with its content type.
func (f *Form) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, ff := range f.files {
		if ff.file.Path == "" {
			return nil, "", errors.New("file " + ff.file.Name + " has no path")
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(ff.field), quoteEscaper.Replace(ff.file.Name)))
		ct := ff.file.Type
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if err := copyFile(part, ff.file.Path); err != nil {
			return nil, "", err
		}
	}
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func copyFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
