package utils

import (
	"bytes"
	"mime/multipart"
	"regexp"
	"strings"
	"testing"

	"spotfix/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 64)...)
)

type upload struct {
	name string
	data []byte
}

// fileHeaders builds real multipart headers the way an HTTP request would carry them.
func fileHeaders(t *testing.T, uploads ...upload) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := w.CreateFormFile("images", u.name)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["images"]
}

func TestReadImages_Accepts(t *testing.T) {
	images, err := ReadImages(fileHeaders(t,
		upload{"a.PNG", pngBytes},
		upload{"b.jpg", jpegBytes},
		upload{"c.jpeg", jpegBytes},
	))
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "image/png", images[0].ContentType)
	assert.Equal(t, "image/jpeg", images[1].ContentType)
	assert.True(t, strings.HasSuffix(images[0].Filename, ".png"))
	assert.Equal(t, pngBytes, images[0].Data)
}

func TestReadImages_NoFiles(t *testing.T) {
	images, err := ReadImages(nil)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestReadImages_RejectsSixth(t *testing.T) {
	var uploads []upload
	for i := 0; i < 6; i++ {
		uploads = append(uploads, upload{"p.png", pngBytes})
	}
	_, err := ReadImages(fileHeaders(t, uploads...))
	assert.ErrorIs(t, err, models.ErrRejectedUpload)
}

func TestReadImages_RejectsType(t *testing.T) {
	tests := []struct {
		name string
		up   upload
	}{
		{"gif extension", upload{"a.gif", []byte("GIF89a....")}},
		{"png extension with text content", upload{"a.png", []byte("just some text")}},
		{"no extension", upload{"image", pngBytes}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadImages(fileHeaders(t, upload{"ok.png", pngBytes}, tt.up))
			assert.ErrorIs(t, err, models.ErrRejectedUpload)
		})
	}
}

func TestReadImages_RejectsOversize(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), make([]byte, MaxImageSize)...)
	_, err := ReadImages(fileHeaders(t, upload{"big.png", big}))
	assert.ErrorIs(t, err, models.ErrRejectedUpload)
}

func TestGenerateFilename(t *testing.T) {
	name := GenerateFilename(".jpg")
	assert.Regexp(t, regexp.MustCompile(`^\d{13}-[0-9a-f]{8}\.jpg$`), name)
	assert.NotEqual(t, name, GenerateFilename(".jpg"))
}
