package pdfops

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/cppla/pdftoolkit/utils"
)

// ZipFiles bundles files into the archive out, storing each under its base name.
func ZipFiles(files []string, out string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return utils.ClassifyProcessingError(err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	for _, path := range files {
		if err := addToZip(zw, path); err != nil {
			zw.Close()
			return utils.ProcessingError(utils.CodeProcessing, "Failed to create archive", err)
		}
	}
	return zw.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
