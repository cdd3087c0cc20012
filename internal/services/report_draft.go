package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

// ReportDraft holds the report being composed. It owns the attached image's
// preview reference and releases it on replace, clear and reset.
type ReportDraft struct {
	previews *preview.Store
	logger   zerolog.Logger

	mu          sync.Mutex
	description string
	source      models.LocationSource
	image       *models.ImageAsset
}

var _ LocationSink = (*ReportDraft)(nil)

// NewReportDraft creates an empty draft.
func NewReportDraft(previews *preview.Store, logger zerolog.Logger) *ReportDraft {
	return &ReportDraft{
		previews: previews,
		logger:   logger,
		source:   models.Unresolved{},
	}
}

func (d *ReportDraft) SetDescription(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.description = text
}

func (d *ReportDraft) Description() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.description
}

// SetLocation replaces the location. A nil source unresolves it.
func (d *ReportDraft) SetLocation(src models.LocationSource) {
	if src == nil {
		src = models.Unresolved{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = src
}

func (d *ReportDraft) Location() models.LocationSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// AttachImage replaces the image, releasing the previous preview first.
func (d *ReportDraft) AttachImage(asset models.ImageAsset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image != nil && d.image.Preview != asset.Preview {
		d.releaseLocked()
	}
	d.image = &asset
}

// Discard releases the preview of an asset that will not be attached. The
// attached image's preview is left alone.
func (d *ReportDraft) Discard(asset models.ImageAsset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if asset.Preview == "" || d.previews == nil {
		return
	}
	if d.image != nil && d.image.Preview == asset.Preview {
		return
	}
	d.previews.Release(asset.Preview)
}

// ClearImage removes the image and releases its preview.
func (d *ReportDraft) ClearImage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
	d.image = nil
}

func (d *ReportDraft) Image() (models.ImageAsset, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image == nil {
		return models.ImageAsset{}, false
	}
	return *d.image, true
}

// IsSubmitEligible reports whether the description, location and image are
// all present.
func (d *ReportDraft) IsSubmitEligible() bool {
	return d.Validate() == nil
}

// Validate returns one *models.ValidationError per missing field, joined.
func (d *ReportDraft) Validate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validateLocked()
}

// Freeze validates and snapshots the draft under one lock.
func (d *ReportDraft) Freeze() (models.DraftSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.validateLocked(); err != nil {
		return models.DraftSnapshot{}, err
	}
	coord, _ := models.CoordinateOf(d.source)
	return models.DraftSnapshot{
		Description: strings.TrimSpace(d.description),
		Location:    coord,
		Source:      d.source.Kind(),
		Image:       *d.image,
	}, nil
}

// Reset empties the draft and releases the image preview.
func (d *ReportDraft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
	d.description = ""
	d.source = models.Unresolved{}
	d.image = nil
}

func (d *ReportDraft) validateLocked() error {
	var errs []error
	if strings.TrimSpace(d.description) == "" {
		errs = append(errs, &models.ValidationError{Field: models.FieldDescription, Reason: "description missing"})
	}
	if !models.IsResolved(d.source) {
		errs = append(errs, &models.ValidationError{Field: models.FieldLocation, Reason: "location missing"})
	}
	if d.image == nil || d.image.Size() == 0 {
		errs = append(errs, &models.ValidationError{Field: models.FieldImage, Reason: "image missing"})
	}
	return errors.Join(errs...)
}

func (d *ReportDraft) releaseLocked() {
	if d.image == nil || d.image.Preview == "" || d.previews == nil {
		return
	}
	if d.previews.Release(d.image.Preview) {
		d.logger.Debug().Str("preview", d.image.Preview).Msg("Released image preview")
	}
}
