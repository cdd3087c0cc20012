package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/service_registry"
	"github.com/benmeehan/waste-reporter/internal/utils"
	"github.com/benmeehan/waste-reporter/pkg/file"
	"github.com/benmeehan/waste-reporter/pkg/identity"
	"github.com/benmeehan/waste-reporter/pkg/mqtt"
	"github.com/benmeehan/waste-reporter/pkg/session"
)

func main() {
	// Set up structured logging with JSON output
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	configPath := utils.ConfigPath("configs/config.yaml")
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		log.Warn().Str("level", config.Logging.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	if config.Logging.Pretty {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log = log.Level(level)

	// Initialize reporter identity
	reporterInfo := identity.NewReporterInfo(config.Identity.ReporterFile, fileClient)
	if err := reporterInfo.LoadReporterInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load reporter information")
	}
	log.Info().Str("reporter_id", reporterInfo.GetReporterID()).Msg("Reporter identity loaded")

	sessionStore := newSessionStore(config, fileClient, log)

	// The outcome event connection is optional
	var mqttClient *mqtt.MqttService
	var eventsClient mqtt.MQTTClient
	if config.Events.Enabled {
		clientID := config.Events.ClientID + "-" + uuid.New().String()
		log.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

		mqttClient = mqtt.NewMqttService(fileClient, log)
		if err := mqttClient.Initialize(config.Events.Broker, clientID, config.Events.CACertificate, config.Events.ConnectTimeout); err != nil {
			log.Error().Err(err).Msg("Failed to initialize MQTT connection, outcome events disabled")
			mqttClient = nil
		} else {
			eventsClient = mqttClient
		}
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(fileClient, sessionStore, eventsClient, log)

	if _, err := serviceRegistry.RegisterServices(config, reporterInfo, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}

// newSessionStore opens the sealed session file, falling back to an
// in-memory session when none is configured or it cannot be opened.
func newSessionStore(config *utils.Config, fileClient file.FileOperations, log zerolog.Logger) session.Store {
	if config.Session.File == "" {
		return session.NewMemoryStore()
	}

	key, err := fileClient.ReadFileRaw(config.Session.AESKeyFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read session key, keeping the session in memory")
		return session.NewMemoryStore()
	}
	store, err := session.NewEncryptedFileStore(config.Session.File, key, fileClient)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open session file, keeping the session in memory")
		return session.NewMemoryStore()
	}
	return store
}
