package switchcollection

type (
	// Switch is a single controllable port.
	Switch interface {
		TurnOn() error
		TurnOff() error
		GetState() (bool, error)
		String() string
	}

	// SwitchCollection is a group of ports that can also be operated
	// as a unit. GetState reports true when every port is on.
	SwitchCollection interface {
		Switch
		CountSwitches() uint
		ListSwitches() []Switch
		GetSwitch(id uint) (Switch, error)
		GetDetailedState() ([]bool, error)
		SetDetailedState(states []bool) error
		Init() error
		Close() error
	}
)
