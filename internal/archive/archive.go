// Package archive packages rendered cards for download.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

type Format string

const (
	FormatZip Format = "zip"
	FormatPDF Format = "pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrNoImages          = errors.New("nothing to package")
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zip":
		return FormatZip, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FileName is the download name for an archive.
func FileName(f Format) string { return "images." + string(f) }

func ContentType(f Format) string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/zip"
}

// EntryName names the i-th image inside a zip.
func EntryName(i int) string { return fmt.Sprintf("image%d.png", i) }

// WriteZip stores one PNG entry per image, named by ordinal position.
func WriteZip(w io.Writer, images [][]byte) error {
	zw := zip.NewWriter(w)
	for i, img := range images {
		// PNG data is already compressed.
		f, err := zw.CreateHeader(&zip.FileHeader{Name: EntryName(i), Method: zip.Store})
		if err != nil {
			return fmt.Errorf("zip entry %d: %w", i, err)
		}
		if _, err := f.Write(img); err != nil {
			return fmt.Errorf("zip entry %d: %w", i, err)
		}
	}
	return zw.Close()
}

// WritePDF lays out one image per page; pages are width x height points,
// matching the canvas pixel size.
func WritePDF(w io.Writer, images [][]byte, width, height int) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	size := gofpdf.SizeType{Wd: float64(width), Ht: float64(height)}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{OrientationStr: "P", UnitStr: "pt", Size: size})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range images {
		name := EntryName(i)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.AddPageFormat("P", size)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf page %d: %w", i, err)
		}
	}
	return pdf.Output(w)
}

// Write packages images in the given format.
func Write(w io.Writer, f Format, images [][]byte, width, height int) error {
	switch f {
	case FormatZip:
		return WriteZip(w, images)
	case FormatPDF:
		return WritePDF(w, images, width, height)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
