package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// DeviceSensorProvider reads the position from a GPS receiver on a serial port.
type DeviceSensorProvider struct {
	port     string // Serial port the receiver is connected to
	baudRate int    // Baud rate for the serial communication
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// GetLocation opens the port and waits for the first GGA sentence carrying a
// fix. The port is closed when ctx is done, which unblocks the read.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	s, err := serial.OpenPort(&serial.Config{
		Name:        d.port,
		Baud:        d.baudRate,
		ReadTimeout: time.Second,
	})
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Location{}, fmt.Errorf("%w: open %s: %v", ErrPermissionDenied, d.port, err)
		}
		return Location{}, fmt.Errorf("%w: open %s: %v", ErrUnavailable, d.port, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		s.Close()
	}()

	loc, err := readFix(ctx, s)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Location{}, ctxErr
	}
	return loc, err
}

// readFix scans NMEA sentences until a GGA with a valid fix appears.
func readFix(ctx context.Context, r io.Reader) (Location, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return Location{}, ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		// GPGGA from GPS-only receivers, GNGGA from multi-constellation ones
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, "GGA,") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}
		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}

		return Location{
			Latitude:  gga.Latitude,
			Longitude: gga.Longitude,
			Accuracy:  gga.HDOP,
		}, nil
	}

	if err := scanner.Err(); err != nil {
		return Location{}, fmt.Errorf("failed to read GPS output: %w", err)
	}
	return Location{}, ErrNoFix
}
