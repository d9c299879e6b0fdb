package api

import (
	"fmt"
	"log"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shanedertrain/cusbc/internal/httpserver"
	"github.com/shanedertrain/cusbc/internal/mqtt"
	"github.com/shanedertrain/cusbc/internal/portstate"
	"github.com/shanedertrain/cusbc/internal/switchcollection"
	"github.com/shanedertrain/cusbc/internal/switchdrivers"
)

// Server exposes hub port control over HTTP.
type Server struct {
	listenAddr string
	switches   switchcollection.SwitchCollection
	codec      *portstate.Codec
	mqttClient *mqtt.Client
	router     *chi.Mux
	mutex      sync.Mutex
}

// NewServer creates a Server from configuration: it builds the
// configured driver, initializes it, and wires the routes.
func NewServer(cfg *Config) (*Server, error) {
	switches, err := switchdrivers.Create(cfg.Driver, cfg.driverConfig())
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrUnknownDriver, cfg.Driver, err)
	}

	if err := switches.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverInitFailed, err)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Server != "" {
		mqttClient, err = mqtt.NewClient(mqtt.Config{
			ServerURL: cfg.MQTT.Server,
			ClientID:  cfg.MQTT.ClientID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MQTT client: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	return newServerWithCollection(switches, mqttClient, addr)
}

// newServerWithCollection is the shared constructor used by NewServer
// and the tests.
func newServerWithCollection(switches switchcollection.SwitchCollection, mqttClient *mqtt.Client, listenAddr string) (*Server, error) {
	codec, err := portstate.NewCodec(switches.CountSwitches())
	if err != nil {
		return nil, fmt.Errorf("driver reports unusable port count: %w", err)
	}

	s := &Server{
		listenAddr: listenAddr,
		switches:   switches,
		codec:      codec,
		mqttClient: mqttClient,
		router:     chi.NewRouter(),
	}

	s.router.Use(middleware.Logger)
	s.router.Get("/hubs", s.hubsHandler)
	s.router.Get("/ports", s.portsHandler)
	s.router.Post("/ports", s.setPortsHandler)
	s.router.Get("/port/{id}", s.portStatusHandler)
	s.router.Post("/port/{id}", s.portHandler)
	s.router.Post("/hub/save", s.maintenanceHandler("save", maintainer.SaveInitialStates))
	s.router.Post("/hub/defaults", s.maintenanceHandler("defaults", maintainer.RestoreFactoryDefaults))
	s.router.Post("/hub/reset", s.maintenanceHandler("reset", maintainer.Reset))

	return s, nil
}

// Start starts the API server and blocks until shutdown.
func (s *Server) Start() error {
	log.Printf("serving %s", s.switches)
	return httpserver.StartWithGracefulShutdown(s.listenAddr, s.router)
}

// Close releases the driver and the MQTT connection.
func (s *Server) Close() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect(250)
	}
	if err := s.switches.Close(); err != nil {
		log.Printf("failed to close switch collection: %v", err)
	}
}
