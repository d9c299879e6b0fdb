package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shanedertrain/cusbc/internal/hub"
	"github.com/shanedertrain/cusbc/internal/portstate"
)

// APIResponse is the envelope for every reply.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PortsResponse reports the full hub state in all three
// representations.
type PortsResponse struct {
	Count  uint   `json:"count"`
	States []bool `json:"states"`
	Bitmap string `json:"bitmap"`
	Hex    string `json:"hex"`
}

// PortResponse reports one port. Port numbering starts at 1 to match
// the hub's labels.
type PortResponse struct {
	Port  uint `json:"port"`
	State bool `json:"state"`
}

type portRequest struct {
	State string `json:"state"`
}

// portsRequest carries a desired whole-hub state in exactly one of the
// two formats.
type portsRequest struct {
	Bitmap *string `json:"bitmap,omitempty"`
	Hex    *string `json:"hex,omitempty"`
}

// hubLister is implemented by drivers that can enumerate hubs.
type hubLister interface {
	Hubs() ([]hub.HubInfo, error)
}

// maintainer is implemented by drivers that support the
// password-protected hub maintenance operations.
type maintainer interface {
	SaveInitialStates() error
	RestoreFactoryDefaults() error
	Reset() error
}

// hubLabeler is implemented by drivers that can name the hub they
// control, for use in MQTT topics.
type hubLabeler interface {
	HubLabel() string
}

func (s *Server) sendResponse(w http.ResponseWriter, resp APIResponse, httpCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, httpCode int) {
	s.sendResponse(w, APIResponse{Status: "error", Message: message}, httpCode)
}

func (s *Server) hubsHandler(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.switches.(hubLister)
	if !ok {
		s.sendError(w, "hub discovery is not supported by this driver", http.StatusNotImplemented)
		return
	}

	hubs, err := lister.Hubs()
	if err != nil {
		log.Printf("hub discovery failed: %v", err)
		s.sendError(w, "hub discovery failed", http.StatusBadGateway)
		return
	}

	s.sendResponse(w, APIResponse{Status: "ok", Data: hubs}, http.StatusOK)
}

func (s *Server) portsHandler(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	resp, err := s.portsResponse()
	if err != nil {
		log.Printf("failed to read port states: %v", err)
		s.sendError(w, "failed to read port states", http.StatusBadGateway)
		return
	}

	s.sendResponse(w, APIResponse{Status: "ok", Data: resp}, http.StatusOK)
}

func (s *Server) portsResponse() (*PortsResponse, error) {
	states, err := s.switches.GetDetailedState()
	if err != nil {
		return nil, err
	}

	bitmap, err := s.codec.BitmapString(states)
	if err != nil {
		return nil, err
	}
	encoded, err := s.codec.Encode(states)
	if err != nil {
		return nil, err
	}

	return &PortsResponse{
		Count:  s.switches.CountSwitches(),
		States: states,
		Bitmap: bitmap,
		Hex:    encoded,
	}, nil
}

// portFromRequest resolves the 1-based {id} URL parameter.
func (s *Server) portFromRequest(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 || uint(id) > s.switches.CountSwitches() {
		return 0, errors.New("invalid port number")
	}
	return uint(id), nil
}

func (s *Server) portStatusHandler(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	port, err := s.portFromRequest(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sw, err := s.switches.GetSwitch(port - 1)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := sw.GetState()
	if err != nil {
		log.Printf("failed to read port %d: %v", port, err)
		s.sendError(w, "failed to read port state", http.StatusBadGateway)
		return
	}

	s.sendResponse(w, APIResponse{Status: "ok", Data: PortResponse{Port: port, State: state}}, http.StatusOK)
}

func (s *Server) portHandler(w http.ResponseWriter, r *http.Request) {
	var req portRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "failed to decode request body", http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	port, err := s.portFromRequest(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sw, err := s.switches.GetSwitch(port - 1)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var on bool
	switch req.State {
	case "on":
		on = true
	case "off":
		on = false
	default:
		s.sendError(w, "invalid state, must be 'on' or 'off'", http.StatusBadRequest)
		return
	}

	var opErr error
	if on {
		opErr = sw.TurnOn()
	} else {
		opErr = sw.TurnOff()
	}
	if opErr != nil {
		log.Printf("failed to set port %d: %v", port, opErr)
		s.sendError(w, "failed to set port state", http.StatusBadGateway)
		return
	}

	s.publishPortEvent(port, on)
	s.sendResponse(w, APIResponse{Status: "ok", Data: PortResponse{Port: port, State: on}}, http.StatusOK)
}

func (s *Server) setPortsHandler(w http.ResponseWriter, r *http.Request) {
	var req portsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "failed to decode request body", http.StatusBadRequest)
		return
	}

	if (req.Bitmap == nil) == (req.Hex == nil) {
		s.sendError(w, "exactly one of 'bitmap' or 'hex' is required", http.StatusBadRequest)
		return
	}

	var states portstate.PortState
	var err error
	if req.Bitmap != nil {
		states, err = s.codec.ParseBitmap(*req.Bitmap)
	} else {
		states, err = s.codec.Decode(*req.Hex)
	}
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.switches.SetDetailedState(states); err != nil {
		log.Printf("failed to set port states: %v", err)
		s.sendError(w, "failed to set port states", http.StatusBadGateway)
		return
	}

	for i, on := range states {
		s.publishPortEvent(uint(i)+1, on)
	}

	resp, err := s.portsResponse()
	if err != nil {
		log.Printf("failed to read back port states: %v", err)
		s.sendError(w, "failed to read back port states", http.StatusBadGateway)
		return
	}

	s.sendResponse(w, APIResponse{Status: "ok", Data: resp}, http.StatusOK)
}

func (s *Server) maintenanceHandler(name string, op func(maintainer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := s.switches.(maintainer)
		if !ok {
			s.sendError(w, "maintenance operations are not supported by this driver", http.StatusNotImplemented)
			return
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		if err := op(m); err != nil {
			if errors.Is(err, hub.ErrPasswordRequired) {
				s.sendError(w, err.Error(), http.StatusForbidden)
				return
			}
			log.Printf("maintenance operation %s failed: %v", name, err)
			s.sendError(w, "maintenance operation failed", http.StatusBadGateway)
			return
		}

		s.sendResponse(w, APIResponse{Status: "ok"}, http.StatusOK)
	}
}

// publishPortEvent publishes a retained state-change event when MQTT
// is configured. Publish failures never fail the request.
func (s *Server) publishPortEvent(port uint, state bool) {
	if s.mqttClient == nil || !s.mqttClient.IsConnected() {
		return
	}

	label := "hub"
	if l, ok := s.switches.(hubLabeler); ok {
		label = l.HubLabel()
	}
	if err := s.mqttClient.PublishPortEvent(label, port, state); err != nil {
		log.Printf("failed to publish port event: %v", err)
	}
}
