package services_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/services"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

func attachTestImage(t *testing.T, draft *services.ReportDraft, previews *preview.Store) models.ImageAsset {
	t.Helper()
	data := pngBytes(t)
	asset := models.ImageAsset{
		Data:     data,
		MIMEType: "image/png",
		Origin:   models.OriginFilePicker,
		FileName: "bins.png",
		Preview:  previews.Register(data, "image/png"),
	}
	draft.AttachImage(asset)
	return asset
}

func TestReportDraft_ValidateReportsEachMissingField(t *testing.T) {
	draft := services.NewReportDraft(preview.NewStore(), zerolog.Nop())

	err := draft.Validate()
	assert.ElementsMatch(t,
		[]string{models.FieldDescription, models.FieldLocation, models.FieldImage},
		models.ValidationFields(err))
	assert.False(t, draft.IsSubmitEligible())

	draft.SetDescription("   ")
	draft.SetLocation(models.ManualLocation{Coordinate: models.Coordinate{Latitude: 1, Longitude: 2}})
	err = draft.Validate()
	assert.ElementsMatch(t, []string{models.FieldDescription, models.FieldImage}, models.ValidationFields(err))

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "description missing", ve.Reason)
}

func TestReportDraft_FreezeSnapshotsTrimmedDraft(t *testing.T) {
	previews := preview.NewStore()
	draft := services.NewReportDraft(previews, zerolog.Nop())
	draft.SetDescription("  Overflowing bins on the corner \n")
	coord := mustCoordinate(t, 53.35, -6.26)
	draft.SetLocation(models.MapClickLocation{Coordinate: coord})
	asset := attachTestImage(t, draft, previews)

	require.True(t, draft.IsSubmitEligible())
	snapshot, err := draft.Freeze()
	require.NoError(t, err)

	assert.Equal(t, "Overflowing bins on the corner", snapshot.Description)
	assert.Equal(t, coord, snapshot.Location)
	assert.Equal(t, models.SourceMapClick, snapshot.Source)
	assert.Equal(t, asset, snapshot.Image)
}

func TestReportDraft_ImageReplaceClearAndResetReleasePreview(t *testing.T) {
	previews := preview.NewStore()
	draft := services.NewReportDraft(previews, zerolog.Nop())

	first := attachTestImage(t, draft, previews)
	second := attachTestImage(t, draft, previews)
	_, ok := previews.Get(first.Preview)
	assert.False(t, ok, "replaced image must be released")
	_, ok = previews.Get(second.Preview)
	assert.True(t, ok)

	draft.ClearImage()
	assert.Equal(t, 0, previews.Len())
	_, has := draft.Image()
	assert.False(t, has)

	attachTestImage(t, draft, previews)
	draft.SetDescription("bins")
	draft.Reset()
	assert.Equal(t, 0, previews.Len())
	assert.Empty(t, draft.Description())
	assert.Equal(t, models.Unresolved{}, draft.Location())
}

func TestReportDraft_SetLocationNilUnresolves(t *testing.T) {
	draft := services.NewReportDraft(preview.NewStore(), zerolog.Nop())
	draft.SetLocation(models.DeviceLocation{Coordinate: models.Coordinate{Latitude: 1, Longitude: 1}})
	draft.SetLocation(nil)

	assert.False(t, models.IsResolved(draft.Location()))
}
