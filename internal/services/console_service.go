package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/pkg/location"
)

const consoleHelp = `commands:
  desc <text>          set the description
  here                 use the current device location
  map <lat> <lng>      pick a point on the map
  manual <lat> <lng>   enter coordinates
  search <query>       search for a place
  place <n>            use search result n
  camera               open the camera
  capture              take the photo and close the camera
  cancel               close the camera
  file <path>          attach a photo from a file
  clear                remove the photo
  status               show the report
  submit               send the report
  dismiss <control>    dismiss a notice
  help                 show this help`

// ConsoleService drives the capture view from line commands, for field
// devices without a screen.
type ConsoleService struct {
	view   *CaptureView
	in     io.Reader
	out    io.Writer
	prompt string
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	places []location.Place
}

// NewConsoleService initializes a new ConsoleService.
func NewConsoleService(view *CaptureView, in io.Reader, out io.Writer, prompt string, logger zerolog.Logger) *ConsoleService {
	return &ConsoleService{
		view:   view,
		in:     in,
		out:    out,
		prompt: prompt,
		logger: logger,
	}
}

// Start reads commands until Stop or end of input.
func (c *ConsoleService) Start() error {
	if c.ctx != nil {
		c.logger.Warn().Msg("ConsoleService is already running")
		return errors.New("console service is already running")
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	// A blocked read cannot be interrupted; the reader exits on the next
	// line or at end of input.
	ctx := c.ctx
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runLoop(lines)
	}()

	c.logger.Info().Msg("ConsoleService started successfully")
	return nil
}

// Stop ends the command loop.
func (c *ConsoleService) Stop() error {
	if c.ctx == nil {
		c.logger.Warn().Msg("ConsoleService is not running")
		return errors.New("console service is not running")
	}

	c.cancel()
	c.wg.Wait()

	c.ctx = nil
	c.cancel = nil

	c.logger.Info().Msg("ConsoleService stopped successfully")
	return nil
}

func (c *ConsoleService) runLoop(lines <-chan string) {
	fmt.Fprint(c.out, c.prompt)
	for {
		select {
		case <-c.ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				c.logger.Info().Msg("Console input closed")
				return
			}
			c.Execute(c.ctx, line)
			fmt.Fprint(c.out, c.prompt)
		}
	}
}

// Execute runs one command line.
func (c *ConsoleService) Execute(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	case "desc":
		c.view.SetDescription(arg)
		fmt.Fprintln(c.out, "description set")
	case "here":
		if err := c.view.UseCurrentLocation(); err != nil {
			fmt.Fprintln(c.out, "error:", c.noticeFor(constants.ControlLocation, err))
			return
		}
		fmt.Fprintln(c.out, "using the current location")
	case "map":
		lat, lng, err := twoFloats(arg)
		if err != nil {
			fmt.Fprintln(c.out, "usage: map <lat> <lng>")
			return
		}
		c.report(c.view.SelectOnMap(models.Coordinate{Latitude: lat, Longitude: lng}), "map point selected")
	case "manual":
		fields := strings.Fields(arg)
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: manual <lat> <lng>")
			return
		}
		c.report(c.view.SubmitManual(fields[0], fields[1]), "coordinates set")
	case "search":
		c.search(ctx, arg)
	case "place":
		c.selectPlace(arg)
	case "camera":
		c.openCamera(ctx)
	case "capture":
		c.report(c.view.CapturePhoto(ctx), "photo attached")
	case "cancel":
		c.view.CancelCamera()
		fmt.Fprintln(c.out, "camera closed")
	case "file":
		c.report(c.view.PickFile(arg), "photo attached")
	case "clear":
		c.view.ClearImage()
		fmt.Fprintln(c.out, "photo removed")
	case "status":
		c.printStatus()
	case "submit":
		fmt.Fprintln(c.out, "submitting...")
		outcome, err := c.view.Submit(ctx)
		if err != nil && outcome.Message == "" {
			fmt.Fprintln(c.out, "error:", noticeMessage(err))
			return
		}
		if outcome.Succeeded {
			fmt.Fprintln(c.out, "ok:", outcome.Message)
		} else {
			fmt.Fprintln(c.out, "error:", outcome.Message)
		}
	case "dismiss":
		c.view.Dismiss(arg)
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", cmd)
	}
}

func (c *ConsoleService) report(err error, success string) {
	if err != nil {
		fmt.Fprintln(c.out, "error:", noticeMessage(err))
		return
	}
	fmt.Fprintln(c.out, success)
}

func (c *ConsoleService) search(ctx context.Context, query string) {
	places, err := c.view.Search(ctx, query)
	if err != nil {
		fmt.Fprintln(c.out, "error:", noticeMessage(err))
		return
	}

	c.mu.Lock()
	c.places = places
	c.mu.Unlock()

	if len(places) == 0 {
		fmt.Fprintln(c.out, "no places found")
		return
	}
	for i, p := range places {
		fmt.Fprintf(c.out, "%d. %s (%s, %s)\n", i+1, p.Name,
			strconv.FormatFloat(p.Latitude, 'f', -1, 64), strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	}
}

func (c *ConsoleService) selectPlace(arg string) {
	n, err := strconv.Atoi(arg)

	c.mu.Lock()
	places := c.places
	c.mu.Unlock()

	if err != nil || n < 1 || n > len(places) {
		fmt.Fprintln(c.out, "usage: place <n>, after a search")
		return
	}
	c.report(c.view.SelectPlace(places[n-1]), "place selected: "+places[n-1].Name)
}

func (c *ConsoleService) openCamera(ctx context.Context) {
	session, err := c.view.OpenCamera(ctx)
	if err != nil {
		fmt.Fprintln(c.out, "error:", c.noticeFor(constants.ControlCamera, err))
		return
	}
	frame, err := session.Preview(ctx)
	if err != nil {
		fmt.Fprintln(c.out, "camera open, preview unavailable:", noticeMessage(err))
		return
	}
	b := frame.Bounds()
	fmt.Fprintf(c.out, "camera open (%dx%d), type capture or cancel\n", b.Dx(), b.Dy())
}

func (c *ConsoleService) noticeFor(control string, err error) string {
	for _, n := range c.view.Notices() {
		if n.Control == control {
			return n.Message
		}
	}
	return noticeMessage(err)
}

func (c *ConsoleService) printStatus() {
	s := c.view.Status()

	fmt.Fprintf(c.out, "description: %q\n", s.Description)
	if coord, ok := models.CoordinateOf(s.Location); ok {
		fmt.Fprintf(c.out, "location:    %s (%s)\n", coord, s.Location.Kind())
	} else {
		fmt.Fprintf(c.out, "location:    none (%s)\n", s.LocationState)
	}
	if s.HasImage {
		fmt.Fprintf(c.out, "photo:       attached (%s)\n", s.ImageOrigin)
	} else {
		fmt.Fprintln(c.out, "photo:       none")
	}
	fmt.Fprintf(c.out, "camera:      %s\n", onOff(s.CameraOpen))
	fmt.Fprintf(c.out, "submission:  %s, ready: %t\n", s.SubmissionState, s.CanSubmit)
	if s.LastOutcome != nil {
		fmt.Fprintf(c.out, "last result: %s\n", s.LastOutcome.Message)
	}
	for _, n := range s.Notices {
		fmt.Fprintf(c.out, "! [%s] %s\n", n.Control, n.Message)
	}
}

func onOff(b bool) string {
	if b {
		return "open"
	}
	return "closed"
}

func twoFloats(arg string) (float64, float64, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return 0, 0, errors.New("want two numbers")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}
