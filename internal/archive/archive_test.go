package archive

import (
	"archive/zip"
	"bytes"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(40, 20, c), imaging.PNG))
	return buf.Bytes()
}

func TestWriteZip(t *testing.T) {
	imgs := [][]byte{pngBytes(t, color.White), pngBytes(t, color.Black), []byte("third")}
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, imgs))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	for i, f := range zr.File {
		assert.Equal(t, EntryName(i), f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, imgs[i], got)
	}
	assert.Equal(t, "image0.png", zr.File[0].Name)
}

func TestWriteZipEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, nil))
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatPDF, [][]byte{pngBytes(t, color.White), pngBytes(t, color.Black)}, 40, 20)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.ErrorIs(t, WritePDF(&bytes.Buffer{}, nil, 40, 20), ErrNoImages)
}

func TestWritePDFBadImage(t *testing.T) {
	err := WritePDF(&bytes.Buffer{}, [][]byte{[]byte("not a png")}, 40, 20)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatZip, f)
	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "images.pdf", FileName(f))

	_, err = ParseFormat("tar")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
