package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/utils"
	"github.com/benmeehan/waste-reporter/pkg/location"
)

var (
	// ErrNoCaptureSession is returned when capturing without an open camera.
	ErrNoCaptureSession = errors.New("the camera is not open")

	// ErrViewStopped is returned when a photo arrives after the view stopped.
	ErrViewStopped = errors.New("the capture view is not running")
)

// ViewStatus is a snapshot of everything the capture view shows.
type ViewStatus struct {
	LocationState         constants.LocationState
	Location              models.LocationSource
	LocationFailure       string
	Description           string
	HasImage              bool
	ImageOrigin           models.ImageOrigin
	CameraOpen            bool
	SubmissionState       constants.SubmissionState
	CanSubmit             bool
	CanUseCurrentLocation bool
	LastOutcome           *models.SubmissionOutcome
	Notices               []models.Notice
}

// CaptureView ties the location resolver, the camera, the file picker, the
// draft and the submission pipeline into the report capture screen. Start
// mounts it, Stop unmounts it.
type CaptureView struct {
	resolver *LocationResolver
	draft    *ReportDraft
	pipeline *SubmissionPipeline
	camera   *CaptureController
	picker   *FilePicker
	logger   zerolog.Logger

	mu      sync.Mutex
	notices map[string]string
	pool    *utils.WorkerPool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewCaptureView creates an unmounted view.
func NewCaptureView(resolver *LocationResolver, draft *ReportDraft, pipeline *SubmissionPipeline,
	camera *CaptureController, picker *FilePicker, logger zerolog.Logger) *CaptureView {

	return &CaptureView{
		resolver: resolver,
		draft:    draft,
		pipeline: pipeline,
		camera:   camera,
		picker:   picker,
		logger:   logger,
		notices:  make(map[string]string),
	}
}

// Start mounts the view and starts the device probe in the background.
func (v *CaptureView) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ctx != nil {
		v.logger.Warn().Msg("CaptureView is already running")
		return errors.New("capture view is already running")
	}

	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.pool = utils.NewWorkerPool(1)

	ctx := v.ctx
	v.pool.Submit(func() {
		if err := v.resolver.Mount(ctx); err != nil {
			v.setNotice(constants.ControlLocation, v.resolver.FailureMessage())
		}
	})

	v.logger.Info().Msg("CaptureView started successfully")
	return nil
}

// Stop unmounts the view: pending probe results are ignored, an open camera
// is stopped and the draft is discarded.
func (v *CaptureView) Stop() error {
	v.mu.Lock()
	if v.ctx == nil {
		v.mu.Unlock()
		v.logger.Warn().Msg("CaptureView is not running")
		return errors.New("capture view is not running")
	}
	cancel, pool := v.cancel, v.pool
	v.ctx, v.cancel, v.pool = nil, nil, nil
	v.notices = make(map[string]string)
	v.mu.Unlock()

	v.resolver.Unmount()
	cancel()
	if session := v.camera.Active(); session != nil {
		session.End()
	}
	pool.Shutdown()
	v.draft.Reset()

	v.logger.Info().Msg("CaptureView stopped successfully")
	return nil
}

// Running reports whether the view is mounted.
func (v *CaptureView) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctx != nil
}

func (v *CaptureView) SetDescription(text string) {
	v.draft.SetDescription(text)
	v.clearNotice(constants.ControlDescription)
}

func (v *CaptureView) UseCurrentLocation() error {
	if err := v.resolver.UseCurrentLocation(); err != nil {
		if errors.Is(err, ErrNoDeviceLocation) {
			return v.fail(constants.ControlLocation, err, "Your current location is not available yet")
		}
		return v.fail(constants.ControlLocation, err, "")
	}
	v.clearNotice(constants.ControlLocation)
	return nil
}

func (v *CaptureView) SelectOnMap(coord models.Coordinate) error {
	if err := v.resolver.SelectOnMap(coord); err != nil {
		return v.fail(constants.ControlLocation, err, "")
	}
	v.clearNotice(constants.ControlLocation)
	return nil
}

func (v *CaptureView) SubmitManual(latText, lngText string) error {
	if err := v.resolver.SubmitManual(latText, lngText); err != nil {
		return v.fail(constants.ControlManual, err, "")
	}
	v.clearNotice(constants.ControlManual)
	v.clearNotice(constants.ControlLocation)
	return nil
}

func (v *CaptureView) Search(ctx context.Context, query string) ([]location.Place, error) {
	places, err := v.resolver.Search(ctx, query)
	if err != nil {
		return nil, v.fail(constants.ControlSearch, err, "")
	}
	if len(places) == 0 {
		v.setNotice(constants.ControlSearch, "No places found")
		return nil, nil
	}
	v.clearNotice(constants.ControlSearch)
	return places, nil
}

func (v *CaptureView) SelectPlace(place location.Place) error {
	if err := v.resolver.SelectPlace(place); err != nil {
		return v.fail(constants.ControlSearch, err, "")
	}
	v.clearNotice(constants.ControlSearch)
	v.clearNotice(constants.ControlLocation)
	return nil
}

// OpenCamera starts a capture session. A camera failure leaves the file
// picker as the way to attach a photo.
func (v *CaptureView) OpenCamera(ctx context.Context) (*CaptureSession, error) {
	session, err := v.camera.Begin(ctx)
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, v.fail(constants.ControlCamera, err, "The camera is already open")
		}
		var devErr *models.DeviceError
		if errors.As(err, &devErr) {
			return nil, v.fail(constants.ControlCamera, err,
				"Camera unavailable ("+devErr.Reason+"). You can still choose a photo from your files.")
		}
		return nil, v.fail(constants.ControlCamera, err, "")
	}
	v.clearNotice(constants.ControlCamera)
	return session, nil
}

// CapturePhoto takes the photo from the open session and attaches it. The
// session ends either way. A photo that arrives after Stop is dropped.
func (v *CaptureView) CapturePhoto(ctx context.Context) error {
	session := v.camera.Active()
	if session == nil {
		return v.fail(constants.ControlCamera, ErrNoCaptureSession, "Open the camera first")
	}
	asset, err := session.Capture(ctx)
	if err != nil {
		return v.fail(constants.ControlCamera, err, "")
	}
	if !v.attachWhileRunning(asset) {
		v.draft.Discard(asset)
		v.logger.Debug().Msg("Dropping photo captured after the view stopped")
		return ErrViewStopped
	}
	v.clearNotice(constants.ControlCamera)
	v.clearNotice(constants.ControlImage)
	return nil
}

// CancelCamera ends the open session, if any.
func (v *CaptureView) CancelCamera() {
	if session := v.camera.Active(); session != nil {
		session.End()
	}
}

func (v *CaptureView) PickFile(path string) error {
	asset, err := v.picker.Pick(path)
	if err != nil {
		return v.fail(constants.ControlFilePicker, err, "")
	}
	v.attach(asset)
	return nil
}

func (v *CaptureView) AcceptFile(name string, data []byte) error {
	asset, err := v.picker.Accept(name, data)
	if err != nil {
		return v.fail(constants.ControlFilePicker, err, "")
	}
	v.attach(asset)
	return nil
}

func (v *CaptureView) ClearImage() {
	v.draft.ClearImage()
}

// Submit runs the pipeline. Missing fields each get a notice on their own
// control; other failures land on the submit control.
func (v *CaptureView) Submit(ctx context.Context) (models.SubmissionOutcome, error) {
	outcome, err := v.pipeline.Submit(ctx, v.draft)
	if err == nil {
		v.clearNotice(constants.ControlSubmit)
		return outcome, nil
	}

	if fields := models.ValidationFields(err); len(fields) > 0 {
		var ve *models.ValidationError
		for _, e := range flatten(err) {
			if errors.As(e, &ve) {
				v.setNotice(fieldControl(ve.Field), ve.Reason)
			}
		}
		return outcome, err
	}

	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return outcome, v.fail(constants.ControlSubmit, err, "A submission is already in progress")
	}
	return outcome, v.fail(constants.ControlSubmit, err, outcome.Message)
}

// Notices returns the current notices ordered by control.
func (v *CaptureView) Notices() []models.Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.noticesLocked()
}

// Dismiss removes the notice on control, along with the probe failure or
// submission outcome behind it.
func (v *CaptureView) Dismiss(control string) {
	v.clearNotice(control)

	switch control {
	case constants.ControlLocation:
		v.resolver.ClearFailure()
	case constants.ControlSubmit:
		v.pipeline.ClearOutcome()
	}
}

// Status returns a snapshot of the view.
func (v *CaptureView) Status() ViewStatus {
	status := ViewStatus{
		LocationState:         v.resolver.State(),
		Location:              v.draft.Location(),
		LocationFailure:       v.resolver.FailureMessage(),
		Description:           v.draft.Description(),
		CameraOpen:            v.camera.Busy(),
		SubmissionState:       v.pipeline.State(),
		CanSubmit:             v.pipeline.CanSubmit() && v.draft.IsSubmitEligible(),
		CanUseCurrentLocation: v.resolver.CanUseCurrentLocation(),
	}
	if img, ok := v.draft.Image(); ok {
		status.HasImage = true
		status.ImageOrigin = img.Origin
	}
	if outcome, ok := v.pipeline.LastOutcome(); ok {
		status.LastOutcome = &outcome
	}
	status.Notices = v.Notices()
	return status
}

// attachWhileRunning attaches asset unless the view has stopped. Stop resets
// the draft after clearing ctx, so an attached image is always released.
func (v *CaptureView) attachWhileRunning(asset models.ImageAsset) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx == nil {
		return false
	}
	v.draft.AttachImage(asset)
	return true
}

func (v *CaptureView) attach(asset models.ImageAsset) {
	v.draft.AttachImage(asset)
	v.clearNotice(constants.ControlFilePicker)
	v.clearNotice(constants.ControlImage)
}

// fail records a notice for err on control and returns err. An empty message
// falls back to the error's own text.
func (v *CaptureView) fail(control string, err error, message string) error {
	if message == "" {
		message = noticeMessage(err)
	}
	v.setNotice(control, message)
	v.logger.Debug().Err(err).Str("control", control).Msg("Action rejected")
	return err
}

func (v *CaptureView) clearNotice(control string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.notices, control)
}

func (v *CaptureView) setNotice(control, message string) {
	if message == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices[control] = message
}

func (v *CaptureView) noticesLocked() []models.Notice {
	notices := make([]models.Notice, 0, len(v.notices))
	for control, message := range v.notices {
		notices = append(notices, models.Notice{Control: control, Message: message})
	}
	sort.Slice(notices, func(i, j int) bool { return notices[i].Control < notices[j].Control })
	return notices
}

func noticeMessage(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var devErr *models.DeviceError
	if errors.As(err, &devErr) {
		return devErr.Reason
	}
	var netErr *models.NetworkError
	if errors.As(err, &netErr) && netErr.Message != "" {
		return netErr.Message
	}
	return err.Error()
}

func fieldControl(field string) string {
	switch field {
	case models.FieldDescription:
		return constants.ControlDescription
	case models.FieldLocation:
		return constants.ControlLocation
	case models.FieldImage:
		return constants.ControlImage
	case models.FieldLatitude, models.FieldLongitude:
		return constants.ControlManual
	case models.FieldQuery:
		return constants.ControlSearch
	default:
		return constants.ControlSubmit
	}
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, inner := range joined.Unwrap() {
			out = append(out, flatten(inner)...)
		}
		return out
	}
	return []error{err}
}
