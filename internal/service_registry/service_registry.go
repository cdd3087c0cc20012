package service_registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/registry"
	"github.com/benmeehan/waste-reporter/internal/services"
	"github.com/benmeehan/waste-reporter/internal/utils"
	"github.com/benmeehan/waste-reporter/pkg/camera"
	"github.com/benmeehan/waste-reporter/pkg/file"
	"github.com/benmeehan/waste-reporter/pkg/gateway"
	"github.com/benmeehan/waste-reporter/pkg/identity"
	"github.com/benmeehan/waste-reporter/pkg/location"
	"github.com/benmeehan/waste-reporter/pkg/mqtt"
	"github.com/benmeehan/waste-reporter/pkg/preview"
	"github.com/benmeehan/waste-reporter/pkg/session"
)

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services     map[string]registry.Service // Stores registered services
	serviceKeys  []string                    // Maintains order of service registration
	fileClient   file.FileOperations
	sessionStore session.Store
	mqttClient   mqtt.MQTTClient // nil when outcome events are disabled
	Logger       zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(fileClient file.FileOperations, sessionStore session.Store, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:     make(map[string]registry.Service),
		fileClient:   fileClient,
		sessionStore: sessionStore,
		mqttClient:   mqttClient,
		Logger:       logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the capture view and its collaborators from
// configuration and registers the enabled services. The console, when
// enabled, reads from in and writes to out.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, reporterInfo identity.ReporterInfoInterface, in io.Reader, out io.Writer) (*services.CaptureView, error) {
	view, err := sr.buildCaptureView(config, reporterInfo)
	if err != nil {
		return nil, err
	}

	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "capture_view",
			enabled: true,
			constructor: func() (registry.Service, error) {
				return view, nil
			},
		},
		{
			name:    "console",
			enabled: config.Console.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewConsoleService(view, in, out, config.Console.Prompt, sr.Logger), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return nil, err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return view, nil
}

func (sr *ServiceRegistry) buildCaptureView(config *utils.Config, reporterInfo identity.ReporterInfoInterface) (*services.CaptureView, error) {
	previews := preview.NewThumbnailStore(constants.PreviewDimension, constants.PreviewQuality)
	draft := services.NewReportDraft(previews, sr.Logger)

	provider, err := sr.newLocationProvider(config)
	if err != nil {
		// The resolver still works through the map and manual entry.
		sr.Logger.Error().Err(err).Msg("Location provider unavailable")
		provider = nil
	}
	probe := services.NewGeolocationProbe(provider, config.Location.Timeout, sr.Logger)

	var geocoder location.Geocoder
	if config.Location.MapsAPIKey != "" {
		g, err := location.NewGoogleGeocoder(config.Location.MapsAPIKey, config.Location.Region, config.Location.MaxPlaces)
		if err != nil {
			return nil, fmt.Errorf("failed to create geocoder: %w", err)
		}
		geocoder = g
	}

	mapView := services.NewTrackingMapView(sr.Logger)
	resolver := services.NewLocationResolver(probe, geocoder, mapView, draft, config.Location.DefaultZoom, sr.Logger)

	var device camera.Device
	if config.Camera.RearURL != "" || config.Camera.FrontURL != "" {
		device = camera.NewSnapshotDevice(config.Camera.RearURL, config.Camera.FrontURL, config.Camera.FrameTimeout, sr.Logger)
	}
	controller := services.NewCaptureController(device, previews, config.Camera.JPEGQuality, sr.Logger)
	picker := services.NewFilePicker(sr.fileClient, previews, config.Upload.MaxBytes, config.Upload.AllowedMIMETypes, sr.Logger)

	gw, err := sr.newGateway(config, reporterInfo)
	if err != nil {
		return nil, err
	}
	pipeline := services.NewSubmissionPipeline(gw, config.Gateway.Timeout, sr.Logger)
	if sr.mqttClient != nil {
		pipeline.AddListener(services.NewOutcomePublisher(
			config.Events.Topic,
			config.Events.QOS,
			reporterInfo,
			sr.mqttClient,
			config.Events.ConnectTimeout,
			sr.Logger,
		))
	}

	return services.NewCaptureView(resolver, draft, pipeline, controller, picker, sr.Logger), nil
}

func (sr *ServiceRegistry) newLocationProvider(config *utils.Config) (location.Provider, error) {
	switch config.Location.Provider {
	case utils.LocationProviderGoogle:
		return location.NewGoogleGeolocationProvider(config.Location.MapsAPIKey, config.Location.ModemIndex, sr.Logger)
	case utils.LocationProviderSensor:
		return location.NewDeviceSensorProvider(config.Location.GPSPort, config.Location.GPSBaudRate), nil
	case utils.LocationProviderStatic:
		return location.NewStaticProvider(config.Location.StaticLat, config.Location.StaticLng), nil
	default:
		return nil, fmt.Errorf("unknown location provider %q", config.Location.Provider)
	}
}

func (sr *ServiceRegistry) newGateway(config *utils.Config, reporterInfo identity.ReporterInfoInterface) (gateway.Gateway, error) {
	switch config.Gateway.Kind {
	case utils.GatewayObjectStorage:
		storage := config.Gateway.ObjectStorage
		gw, err := gateway.NewObjectStorageGateway(storage.Endpoint, storage.AccessKeyID, storage.SecretAccessKey, storage.Bucket, storage.Prefix, storage.UseSSL, sr.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create object storage gateway: %w", err)
		}
		return gw, nil
	case utils.GatewayHTTP:
		client := &http.Client{
			Timeout:   config.Gateway.Timeout,
			Transport: sr.InitializeMiddlewares(config, reporterInfo),
		}
		return gateway.NewHTTPGateway(config.Gateway.BaseURL, config.Gateway.SubmitPath, config.Gateway.FileField, client, sr.Logger), nil
	default:
		return nil, fmt.Errorf("unknown gateway kind %q", config.Gateway.Kind)
	}
}
