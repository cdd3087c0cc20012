package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/utils"
	"github.com/benmeehan/waste-reporter/pkg/file"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

// FilePicker turns a chosen file into an image asset. Oversized and
// non-image files are rejected before any asset exists.
type FilePicker struct {
	fileOps  file.FileOperations
	previews *preview.Store
	maxBytes int64
	allowed  map[string]struct{}
	logger   zerolog.Logger
}

// NewFilePicker creates a picker. An empty allowedTypes accepts any image/*.
func NewFilePicker(fileOps file.FileOperations, previews *preview.Store, maxBytes int64, allowedTypes []string, logger zerolog.Logger) *FilePicker {
	if maxBytes <= 0 {
		maxBytes = constants.MaxImageBytes
	}
	return &FilePicker{
		fileOps:  fileOps,
		previews: previews,
		maxBytes: maxBytes,
		allowed:  utils.SliceToSet(allowedTypes),
		logger:   logger,
	}
}

// Pick reads the file at path. The size is checked before reading.
func (p *FilePicker) Pick(path string) (models.ImageAsset, error) {
	size, err := p.fileOps.FileSize(path)
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("unable to open %s: %w", filepath.Base(path), err)
	}
	if size > p.maxBytes {
		return models.ImageAsset{}, p.tooLarge(size)
	}

	data, err := p.fileOps.ReadFileLimited(path, p.maxBytes)
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("unable to read %s: %w", filepath.Base(path), err)
	}
	return p.Accept(filepath.Base(path), data)
}

// Accept validates file content already in memory.
func (p *FilePicker) Accept(name string, data []byte) (models.ImageAsset, error) {
	if int64(len(data)) > p.maxBytes {
		return models.ImageAsset{}, p.tooLarge(int64(len(data)))
	}
	if len(data) == 0 {
		return models.ImageAsset{}, &models.ValidationError{Field: models.FieldImage, Reason: "the selected file is empty"}
	}

	mimeType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	if !strings.HasPrefix(mimeType, "image/") {
		p.logger.Debug().Str("file", name).Str("mime", mimeType).Msg("Rejected non-image file")
		return models.ImageAsset{}, &models.ValidationError{Field: models.FieldImage, Reason: "only image files can be attached"}
	}
	if len(p.allowed) > 0 {
		if _, ok := p.allowed[mimeType]; !ok {
			return models.ImageAsset{}, &models.ValidationError{
				Field:  models.FieldImage,
				Reason: fmt.Sprintf("%s images are not accepted", mimeType),
			}
		}
	}

	asset := models.ImageAsset{
		Data:     data,
		MIMEType: mimeType,
		Origin:   models.OriginFilePicker,
		FileName: name,
	}
	if p.previews != nil {
		asset.Preview = p.previews.Register(data, mimeType)
	}

	p.logger.Info().Str("file", name).Str("mime", mimeType).Int("bytes", len(data)).Msg("Photo selected")
	return asset, nil
}

func (p *FilePicker) tooLarge(size int64) error {
	p.logger.Debug().Int64("bytes", size).Int64("limit", p.maxBytes).Msg("Rejected oversized file")
	return &models.ValidationError{
		Field:  models.FieldImage,
		Reason: "file exceeds the " + formatLimit(p.maxBytes) + " limit",
	}
}

func formatLimit(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d byte", n)
}
