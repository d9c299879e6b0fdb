package switchcollection

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shanedertrain/cusbc/internal/hub"
	"github.com/shanedertrain/cusbc/internal/portstate"
)

// CusbcCollection exposes the ports of a vendor-controlled USB hub as
// a SwitchCollection. Every operation shells out to the vendor
// executable through the hub controller; a mutex serializes
// invocations since the controller holds per-hub state.
type CusbcCollection struct {
	ctrl    *hub.Controller
	format  hub.Format
	timeout time.Duration
	ports   []Switch
	mutex   sync.Mutex
}

// cusbcSwitch is one hub port.
type cusbcSwitch struct {
	collection *CusbcCollection
	index      uint
}

// NewCusbcCollection creates a collection backed by the given hub
// controller. format selects the wire representation used for state
// transfers; timeout bounds each vendor invocation.
func NewCusbcCollection(ctrl *hub.Controller, format hub.Format, timeout time.Duration) *CusbcCollection {
	return &CusbcCollection{
		ctrl:    ctrl,
		format:  format,
		timeout: timeout,
	}
}

func (c *CusbcCollection) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// Init resolves the hub and builds one Switch per reported port.
func (c *CusbcCollection) Init() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	info, err := c.ctrl.Hub(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve hub: %w", err)
	}

	c.ports = make([]Switch, info.NumPorts)
	for i := range c.ports {
		c.ports[i] = &cusbcSwitch{collection: c, index: uint(i)}
	}

	log.Printf("initialized hub %s: %d ports, firmware %s", info.Port, info.NumPorts, info.FirmwareVersion)
	return nil
}

func (c *CusbcCollection) Close() error {
	return nil
}

func (c *CusbcCollection) CountSwitches() uint {
	return uint(len(c.ports))
}

func (c *CusbcCollection) ListSwitches() []Switch {
	return c.ports
}

func (c *CusbcCollection) GetSwitch(id uint) (Switch, error) {
	if id >= uint(len(c.ports)) {
		return nil, fmt.Errorf("port index %d out of range (hub has %d ports)", id, len(c.ports))
	}
	return c.ports[id], nil
}

// TurnOn powers every port with a single vendor invocation.
func (c *CusbcCollection) TurnOn() error {
	states := make([]bool, len(c.ports))
	for i := range states {
		states[i] = true
	}
	return c.SetDetailedState(states)
}

// TurnOff powers down every port with a single vendor invocation.
func (c *CusbcCollection) TurnOff() error {
	return c.SetDetailedState(make([]bool, len(c.ports)))
}

// GetState returns true if every port is powered.
func (c *CusbcCollection) GetState() (bool, error) {
	states, err := c.GetDetailedState()
	if err != nil {
		return false, err
	}
	for _, on := range states {
		if !on {
			return false, nil
		}
	}
	return true, nil
}

func (c *CusbcCollection) GetDetailedState() ([]bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	states, err := c.ctrl.GetPortStates(ctx, c.format)
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (c *CusbcCollection) SetDetailedState(states []bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.SetPortStates(ctx, portstate.PortState(states), c.format)
}

func (c *CusbcCollection) String() string {
	return fmt.Sprintf("cusbc hub %s (%d ports)", c.ctrl.Port(), len(c.ports))
}

// HubLabel returns the COM port of the bound hub, for event topics.
func (c *CusbcCollection) HubLabel() string {
	return c.ctrl.Port()
}

// Hubs reports all hubs the vendor executable can see.
func (c *CusbcCollection) Hubs() ([]hub.HubInfo, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.QueryHubs(ctx)
}

// SaveInitialStates stores the current port states as the hub's
// power-on defaults.
func (c *CusbcCollection) SaveInitialStates() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.SaveInitialStates(ctx)
}

// RestoreFactoryDefaults restores the hub's factory configuration.
func (c *CusbcCollection) RestoreFactoryDefaults() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.RestoreFactoryDefaults(ctx)
}

// Reset resets the hub.
func (c *CusbcCollection) Reset() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.Reset(ctx)
}

func (s *cusbcSwitch) setPort(on bool) error {
	c := s.collection
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := c.opCtx()
	defer cancel()

	return c.ctrl.SetPort(ctx, s.index, on)
}

func (s *cusbcSwitch) TurnOn() error {
	return s.setPort(true)
}

func (s *cusbcSwitch) TurnOff() error {
	return s.setPort(false)
}

func (s *cusbcSwitch) GetState() (bool, error) {
	states, err := s.collection.GetDetailedState()
	if err != nil {
		return false, err
	}
	if s.index >= uint(len(states)) {
		return false, fmt.Errorf("port index %d out of range", s.index)
	}
	return states[s.index], nil
}

func (s *cusbcSwitch) String() string {
	return fmt.Sprintf("cusbc:%d", s.index)
}
