package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/pkg/file"
)

// Location provider kinds.
const (
	LocationProviderGoogle = "google"
	LocationProviderSensor = "sensor"
	LocationProviderStatic = "static"
)

// Gateway kinds.
const (
	GatewayHTTP          = "http"
	GatewayObjectStorage = "object_storage"
)

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // Human readable console output
	} `yaml:"logging"`

	Identity struct {
		ReporterFile string `yaml:"reporter_file"` // Path to the reporter identity file
	} `yaml:"identity"`

	Location struct {
		Provider    string        `yaml:"provider"`      // google, sensor or static
		Timeout     time.Duration `yaml:"timeout"`       // Bound on a single device query
		MapsAPIKey  string        `yaml:"maps_api_key"`  // Google maps API key
		Region      string        `yaml:"region"`        // Region bias for place search
		MaxPlaces   int           `yaml:"max_places"`    // Place search result cap
		ModemIndex  int           `yaml:"modem_index"`   // ModemManager index for cell data
		GPSPort     string        `yaml:"gps_port"`      // Serial port of the GPS receiver
		GPSBaudRate int           `yaml:"gps_baud_rate"` // Baud rate of the GPS receiver
		StaticLat   float64       `yaml:"static_latitude"`
		StaticLng   float64       `yaml:"static_longitude"`
		DefaultZoom int           `yaml:"default_zoom"` // Zoom used when recentring the map
	} `yaml:"location"`

	Camera struct {
		RearURL      string        `yaml:"rear_url"`      // Snapshot endpoint of the rear camera
		FrontURL     string        `yaml:"front_url"`     // Snapshot endpoint of the front camera
		JPEGQuality  int           `yaml:"jpeg_quality"`  // Encode quality of captured frames
		FrameTimeout time.Duration `yaml:"frame_timeout"` // Bound on a single frame grab
	} `yaml:"camera"`

	Upload struct {
		MaxBytes         int64    `yaml:"max_bytes"`          // Largest accepted photo
		AllowedMIMETypes []string `yaml:"allowed_mime_types"` // Empty means any image/*
	} `yaml:"upload"`

	Gateway struct {
		Kind       string        `yaml:"kind"`        // http or object_storage
		BaseURL    string        `yaml:"base_url"`    // Report API base URL
		SubmitPath string        `yaml:"submit_path"` // Report endpoint path
		FileField  string        `yaml:"file_field"`  // Multipart field of the photo
		Timeout    time.Duration `yaml:"timeout"`     // Bound on the round trip
		Anonymous  bool          `yaml:"anonymous"`   // Do not send the session token

		ObjectStorage struct {
			Endpoint        string `yaml:"endpoint"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
			Bucket          string `yaml:"bucket"`
			Prefix          string `yaml:"prefix"`
			UseSSL          bool   `yaml:"use_ssl"`
		} `yaml:"object_storage"`
	} `yaml:"gateway"`

	Session struct {
		File       string `yaml:"file"`         // Sealed session file, empty keeps the session in memory
		AESKeyFile string `yaml:"aes_key_file"` // 32-byte key sealing the session file
	} `yaml:"session"`

	Events struct {
		Enabled        bool          `yaml:"enabled"`         // Publish submission outcomes
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client id, a suffix is added per run
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate
		Topic          string        `yaml:"topic"`           // Outcome topic
		QOS            int           `yaml:"qos"`             // MQTT QoS level
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Bound on the broker handshake
	} `yaml:"events"`

	Console struct {
		Enabled bool   `yaml:"enabled"` // Read commands from stdin
		Prompt  string `yaml:"prompt"`
	} `yaml:"console"`
}

// LoadConfig loads the YAML configuration from the specified file and fills
// in defaults for zero values.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", filename, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Location.Provider == "" {
		c.Location.Provider = LocationProviderGoogle
	}
	if c.Location.Timeout <= 0 {
		c.Location.Timeout = constants.DefaultProbeTimeout
	}
	if c.Location.MaxPlaces <= 0 {
		c.Location.MaxPlaces = 5
	}
	if c.Location.GPSBaudRate <= 0 {
		c.Location.GPSBaudRate = 9600
	}
	if c.Location.DefaultZoom <= 0 {
		c.Location.DefaultZoom = constants.DefaultMapZoom
	}
	if c.Camera.JPEGQuality <= 0 || c.Camera.JPEGQuality > 100 {
		c.Camera.JPEGQuality = constants.DefaultJPEGQuality
	}
	if c.Camera.FrameTimeout <= 0 {
		c.Camera.FrameTimeout = constants.DefaultFrameTimeout
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = constants.MaxImageBytes
	}
	if c.Gateway.Kind == "" {
		c.Gateway.Kind = GatewayHTTP
	}
	if c.Gateway.SubmitPath == "" {
		c.Gateway.SubmitPath = "/api/reports"
	}
	if c.Gateway.FileField == "" {
		c.Gateway.FileField = constants.DefaultFileField
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = constants.DefaultSubmitTimeout
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "reports/outcomes"
	}
	if c.Events.ClientID == "" {
		c.Events.ClientID = "waste-reporter"
	}
	if c.Events.ConnectTimeout <= 0 {
		c.Events.ConnectTimeout = 10 * time.Second
	}
	if c.Console.Prompt == "" {
		c.Console.Prompt = "> "
	}
}

func (c *Config) validate() error {
	switch c.Location.Provider {
	case LocationProviderGoogle, LocationProviderSensor, LocationProviderStatic:
	default:
		return fmt.Errorf("unknown location provider %q", c.Location.Provider)
	}
	switch c.Gateway.Kind {
	case GatewayHTTP:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway.base_url is required for the http gateway")
		}
	case GatewayObjectStorage:
		if c.Gateway.ObjectStorage.Endpoint == "" || c.Gateway.ObjectStorage.Bucket == "" {
			return fmt.Errorf("gateway.object_storage endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown gateway kind %q", c.Gateway.Kind)
	}
	if c.Events.QOS < 0 || c.Events.QOS > 2 {
		return fmt.Errorf("events.qos must be 0, 1 or 2")
	}
	return nil
}
