package switchcollection

import (
	"fmt"
	"log"
	"sync"
)

// DummySwitch is a single virtual port for testing.
type DummySwitch struct {
	id    uint
	state bool
	mutex sync.RWMutex
}

// DummySwitchCollection implements SwitchCollection without any
// hardware, for testing and development.
type DummySwitchCollection struct {
	switches []Switch
	mutex    sync.RWMutex
}

// NewDummySwitchCollection creates a dummy collection with the given
// number of ports, all initially off.
func NewDummySwitchCollection(switchCount uint) *DummySwitchCollection {
	switches := make([]Switch, switchCount)
	for i := uint(0); i < switchCount; i++ {
		switches[i] = &DummySwitch{id: i}
	}
	return &DummySwitchCollection{switches: switches}
}

func (dsc *DummySwitchCollection) Init() error {
	log.Printf("initializing dummy switch collection with %d ports", len(dsc.switches))
	return nil
}

func (dsc *DummySwitchCollection) Close() error {
	return nil
}

func (dsc *DummySwitchCollection) CountSwitches() uint {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()
	return uint(len(dsc.switches))
}

func (dsc *DummySwitchCollection) ListSwitches() []Switch {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()
	return dsc.switches
}

func (dsc *DummySwitchCollection) GetSwitch(id uint) (Switch, error) {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()

	if id >= uint(len(dsc.switches)) {
		return nil, fmt.Errorf("invalid switch id %d", id)
	}
	return dsc.switches[id], nil
}

// TurnOn turns on every port.
func (dsc *DummySwitchCollection) TurnOn() error {
	dsc.mutex.Lock()
	defer dsc.mutex.Unlock()

	for _, sw := range dsc.switches {
		if err := sw.TurnOn(); err != nil {
			return err
		}
	}
	return nil
}

// TurnOff turns off every port.
func (dsc *DummySwitchCollection) TurnOff() error {
	dsc.mutex.Lock()
	defer dsc.mutex.Unlock()

	for _, sw := range dsc.switches {
		if err := sw.TurnOff(); err != nil {
			return err
		}
	}
	return nil
}

// GetState returns true if every port is on.
func (dsc *DummySwitchCollection) GetState() (bool, error) {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()

	for _, sw := range dsc.switches {
		state, err := sw.GetState()
		if err != nil {
			return false, err
		}
		if !state {
			return false, nil
		}
	}
	return true, nil
}

func (dsc *DummySwitchCollection) GetDetailedState() ([]bool, error) {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()

	states := make([]bool, len(dsc.switches))
	for i, sw := range dsc.switches {
		state, err := sw.GetState()
		if err != nil {
			return nil, err
		}
		states[i] = state
	}
	return states, nil
}

func (dsc *DummySwitchCollection) SetDetailedState(states []bool) error {
	dsc.mutex.Lock()
	defer dsc.mutex.Unlock()

	if len(states) != len(dsc.switches) {
		return fmt.Errorf("got %d states for %d switches", len(states), len(dsc.switches))
	}
	for i, on := range states {
		var err error
		if on {
			err = dsc.switches[i].TurnOn()
		} else {
			err = dsc.switches[i].TurnOff()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (dsc *DummySwitchCollection) String() string {
	return fmt.Sprintf("dummy switch collection with %d ports", len(dsc.switches))
}

func (ds *DummySwitch) TurnOn() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	ds.state = true
	return nil
}

func (ds *DummySwitch) TurnOff() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	ds.state = false
	return nil
}

func (ds *DummySwitch) GetState() (bool, error) {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return ds.state, nil
}

func (ds *DummySwitch) String() string {
	return fmt.Sprintf("dummy:%d", ds.id)
}
