package services_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/mocks"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/services"
	"github.com/benmeehan/waste-reporter/pkg/gateway"
)

func runCommands(t *testing.T, console *services.ConsoleService, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	out.Reset()
	for _, line := range lines {
		console.Execute(context.Background(), line)
	}
	return out.String()
}

func TestConsoleService_ComposeAndSubmit(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	f.gateway.On("Submit", mock.Anything, mock.Anything).Return(gateway.Response{Message: "Report received"}, nil)

	var out bytes.Buffer
	console := services.NewConsoleService(f.view, strings.NewReader(""), &out, "> ", zerolog.Nop())

	got := runCommands(t, console, &out, "submit")
	assert.Contains(t, got, "error: description missing, location missing, image missing")

	got = runCommands(t, console, &out,
		"desc Overflowing bins behind the school",
		"manual 53.35 -6.26",
		"status",
	)
	assert.Contains(t, got, "description set")
	assert.Contains(t, got, "coordinates set")
	assert.Contains(t, got, `description: "Overflowing bins behind the school"`)
	assert.Contains(t, got, "location:    (53.35, -6.26) (manual)")
	assert.Contains(t, got, "photo:       none")

	require.NoError(t, f.view.AcceptFile("bins.png", pngBytes(t)))
	got = runCommands(t, console, &out, "submit")
	assert.Contains(t, got, "ok: Report received")
}

func TestConsoleService_Errors(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	var out bytes.Buffer
	console := services.NewConsoleService(f.view, strings.NewReader(""), &out, "> ", zerolog.Nop())

	tests := []struct {
		line string
		want string
	}{
		{"manual abc 10", "error: latitude must be a decimal number"},
		{"manual 10", "usage: manual <lat> <lng>"},
		{"map 95 10", "error: latitude must be between -90 and 90"},
		{"map x", "usage: map <lat> <lng>"},
		{"here", "error: Your current location is not available yet"},
		{"place 1", "usage: place <n>, after a search"},
		{"capture", "error: the camera is not open"},
		{"file /does/not/exist.png", "error: unable to open exist.png"},
		{"fly", `unknown command "fly"`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := runCommands(t, console, &out, tt.line)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestConsoleService_MapSelection(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	var out bytes.Buffer
	console := services.NewConsoleService(f.view, strings.NewReader(""), &out, "> ", zerolog.Nop())

	got := runCommands(t, console, &out, "map 10.5 -20.25")
	assert.Contains(t, got, "map point selected")
	assert.Equal(t, models.MapClickLocation{Coordinate: models.Coordinate{Latitude: 10.5, Longitude: -20.25}}, f.draft.Location())
}

func TestConsoleService_StartReadsInput(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	reader, writer := io.Pipe()
	var out safeBuffer
	console := services.NewConsoleService(f.view, reader, &out, "> ", zerolog.Nop())

	require.NoError(t, console.Start())
	assert.EqualError(t, console.Start(), "console service is already running")

	_, err := writer.Write([]byte("desc Broken glass\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return f.draft.Description() == "Broken glass"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, console.Stop())
	assert.EqualError(t, console.Stop(), "console service is not running")
	writer.Close()
}

func TestConsoleService_CameraCommands(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Frame", mock.Anything).Return(testFrame(), nil)
	stream.On("Stop").Return()
	f := newViewFixture(t, &fakeProber{})
	f.device.On("Open", mock.Anything, mock.Anything).Return(stream, nil)

	var out bytes.Buffer
	console := services.NewConsoleService(f.view, strings.NewReader(""), &out, "> ", zerolog.Nop())

	got := runCommands(t, console, &out, "camera", "camera", "cancel")
	assert.Contains(t, got, "camera open (8x6), type capture or cancel")
	assert.Contains(t, got, "error: The camera is already open")
	assert.Contains(t, got, "camera closed")
	stream.AssertNumberOfCalls(t, "Stop", 1)
}
