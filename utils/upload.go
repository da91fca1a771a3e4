package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"spotfix/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxImages    = 5
	MaxImageSize = 5_000_000
)

var allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true}

var allowedMIME = []string{"image/jpeg", "image/png"}

// Image is a validated upload held in memory until it is stored.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReadImages validates every file before returning any of them, so a single
// bad attachment rejects the whole upload.
func ReadImages(files []*multipart.FileHeader) ([]Image, error) {
	if len(files) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images are allowed", models.ErrRejectedUpload, MaxImages)
	}

	images := make([]Image, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readImage(fh *multipart.FileHeader) (Image, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return Image{}, fmt.Errorf("%w: only .png, .jpg and .jpeg format allowed", models.ErrRejectedUpload)
	}
	if fh.Size > MaxImageSize {
		return Image{}, fmt.Errorf("%w: %s exceeds the 5MB limit", models.ErrRejectedUpload, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return Image{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) > MaxImageSize {
		return Image{}, fmt.Errorf("%w: %s exceeds the 5MB limit", models.ErrRejectedUpload, fh.Filename)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedMIME...) {
		return Image{}, fmt.Errorf("%w: only .png, .jpg and .jpeg format allowed", models.ErrRejectedUpload)
	}

	return Image{
		Filename:    GenerateFilename(ext),
		ContentType: mtype.String(),
		Data:        data,
	}, nil
}

// GenerateFilename returns "<unix-millis>-<8 hex chars><ext>".
func GenerateFilename(ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}
