// Package hub drives the vendor-supplied CUSBC executable, which owns
// all actual communication with the USB hub hardware. This package
// only formats command-line arguments, spawns the executable, and
// interprets its textual output; the executable's exit status is the
// authoritative success signal for any hardware change.
package hub

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shanedertrain/cusbc/internal/executil"
	"github.com/shanedertrain/cusbc/internal/portstate"
)

// DefaultExecutable is the vendor executable name used when no
// explicit path is configured.
const DefaultExecutable = "CUSBC.exe"

// Format selects the textual port-state representation used on the
// vendor command line.
type Format string

const (
	FormatBitmap Format = "B"
	FormatHex    Format = "H"
)

// ParseFormat validates a format selector supplied by a user.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToUpper(s)) {
	case FormatBitmap:
		return FormatBitmap, nil
	case FormatHex:
		return FormatHex, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// HubInfo describes a single connected hub.
type HubInfo struct {
	Port            string              `json:"port"`
	NumPorts        uint                `json:"numPorts"`
	FirmwareVersion string              `json:"firmwareVersion"`
	PortStates      portstate.PortState `json:"portStates"`
}

// Config holds controller settings.
type Config struct {
	// Executable is the path to the vendor binary. Defaults to
	// DefaultExecutable (resolved via PATH).
	Executable string `mapstructure:"executable"`
	// Port is the COM port of the hub to control. When empty, the
	// first discovered hub is used.
	Port string `mapstructure:"port"`
	// Password unlocks the maintenance operations (save, reset,
	// factory defaults, password change).
	Password string `mapstructure:"password"`
}

// Controller wraps the vendor executable for a single hub. It is not
// safe for concurrent use.
type Controller struct {
	executable string
	port       string
	password   string
	numPorts   uint
	codec      *portstate.Codec
	runner     executil.Runner
}

// New creates a Controller. Hub discovery is deferred until the first
// operation that needs a resolved port.
func New(cfg Config, runner executil.Runner) *Controller {
	executable := cfg.Executable
	if executable == "" {
		executable = DefaultExecutable
	}
	return &Controller{
		executable: executable,
		port:       cfg.Port,
		password:   cfg.Password,
		runner:     runner,
	}
}

// Port returns the COM port of the bound hub, or "" before discovery.
func (c *Controller) Port() string {
	return c.port
}

func (c *Controller) run(ctx context.Context, args ...string) (string, error) {
	return c.runner.Run(ctx, c.executable, args...)
}

// QueryHubs discovers all connected hubs and interrogates each one.
func (c *Controller) QueryHubs(ctx context.Context) ([]HubInfo, error) {
	out, err := c.run(ctx, "/Q", "-F")
	if err != nil {
		return nil, err
	}
	if len(out) < 4 {
		return nil, fmt.Errorf("%w: discovery output too short: %q", ErrBadResponse, out)
	}

	count, err := strconv.Atoi(out[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: bad hub count %q", ErrBadResponse, out[:4])
	}
	if count == 0 || out[4:] == "" {
		return nil, nil
	}

	ports := strings.Split(out[4:], ",")
	hubs := make([]HubInfo, 0, len(ports))
	for _, port := range ports {
		info, err := c.QueryHubInfo(ctx, port)
		if err != nil {
			return nil, err
		}
		hubs = append(hubs, info)
	}
	return hubs, nil
}

// QueryHubInfo interrogates the hub on the given COM port. The vendor
// reply is positional: 8 hex digits of port state, 2 hex digits of
// port count, then the firmware version.
func (c *Controller) QueryHubInfo(ctx context.Context, port string) (HubInfo, error) {
	out, err := c.run(ctx, "/Q:"+port, "-F")
	if err != nil {
		return HubInfo{}, err
	}
	if len(out) < 10 {
		return HubInfo{}, fmt.Errorf("%w: hub info output too short: %q", ErrBadResponse, out)
	}

	numPorts, err := strconv.ParseUint(out[8:10], 16, 8)
	if err != nil || numPorts == 0 || numPorts > portstate.MaxPortCount {
		return HubInfo{}, fmt.Errorf("%w: bad port count %q", ErrBadResponse, out[8:10])
	}

	states, err := decodeStatusHex(out[:8])
	if err != nil {
		return HubInfo{}, err
	}
	if uint(len(states)) < uint(numPorts) {
		return HubInfo{}, fmt.Errorf("%w: status field covers %d ports, hub reports %d", ErrBadResponse, len(states), numPorts)
	}

	return HubInfo{
		Port:            port,
		NumPorts:        uint(numPorts),
		FirmwareVersion: out[10:],
		PortStates:      states[:numPorts],
	}, nil
}

// Hub resolves the bound hub (discovering one if no port was
// configured) and returns its current description.
func (c *Controller) Hub(ctx context.Context) (HubInfo, error) {
	if err := c.resolve(ctx); err != nil {
		return HubInfo{}, err
	}
	return c.QueryHubInfo(ctx, c.port)
}

// GetPortStates reads the current port states in the requested format.
func (c *Controller) GetPortStates(ctx context.Context, format Format) (portstate.PortState, error) {
	if err := c.resolve(ctx); err != nil {
		return nil, err
	}

	var mode string
	switch format {
	case FormatBitmap:
		mode = "-B"
	case FormatHex:
		mode = "-H"
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	raw, err := c.run(ctx, "/G:"+c.port, mode)
	if err != nil {
		return nil, err
	}

	var states portstate.PortState
	switch format {
	case FormatBitmap:
		states, err = parseWireBitmap(raw)
	case FormatHex:
		states, err = decodeStatusHex(raw)
	}
	if err != nil {
		return nil, err
	}
	if uint(len(states)) < c.numPorts {
		return nil, fmt.Errorf("%w: state output covers %d ports, hub has %d", ErrBadResponse, len(states), c.numPorts)
	}
	return states[:c.numPorts], nil
}

// SetPortStates writes a complete set of port states. The number of
// states must match the hub's port count.
func (c *Controller) SetPortStates(ctx context.Context, ports portstate.PortState, format Format) error {
	if err := c.resolve(ctx); err != nil {
		return err
	}

	var state string
	switch format {
	case FormatBitmap:
		bitmap, err := c.codec.BitmapString(ports)
		if err != nil {
			return err
		}
		// The vendor wants port 1 in the rightmost position.
		state = reverse(bitmap)
	case FormatHex:
		encoded, err := c.codec.Encode(ports)
		if err != nil {
			return err
		}
		state = encoded
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	args := []string{"/S:" + c.port}
	if c.password != "" {
		args = append(args, c.password)
	}
	args = append(args, string(format)+":"+state)

	_, err := c.run(ctx, args...)
	return err
}

// SetPort changes a single port, leaving the others untouched, via a
// read-modify-write of the full state. Index 0 is port 1.
func (c *Controller) SetPort(ctx context.Context, index uint, on bool) error {
	states, err := c.GetPortStates(ctx, FormatBitmap)
	if err != nil {
		return err
	}
	if index >= uint(len(states)) {
		return fmt.Errorf("port index %d out of range (hub has %d ports)", index, len(states))
	}
	states[index] = on
	return c.SetPortStates(ctx, states, FormatBitmap)
}

// SaveInitialStates stores the current port states to flash as the
// power-on defaults.
func (c *Controller) SaveInitialStates(ctx context.Context) error {
	return c.maintenance(ctx, "/W:")
}

// RestoreFactoryDefaults resets the hub configuration to factory
// settings.
func (c *Controller) RestoreFactoryDefaults(ctx context.Context) error {
	return c.maintenance(ctx, "/D:")
}

// Reset resets the entire hub.
func (c *Controller) Reset(ctx context.Context) error {
	return c.maintenance(ctx, "/R:")
}

// ChangePassword changes the hub password. The current password must
// be configured.
func (c *Controller) ChangePassword(ctx context.Context, newPassword string) error {
	if c.password == "" {
		return ErrPasswordRequired
	}
	if err := c.resolve(ctx); err != nil {
		return err
	}
	if _, err := c.run(ctx, "/P:"+c.port, c.password, newPassword); err != nil {
		return err
	}
	c.password = newPassword
	return nil
}

func (c *Controller) maintenance(ctx context.Context, command string) error {
	if c.password == "" {
		return ErrPasswordRequired
	}
	if err := c.resolve(ctx); err != nil {
		return err
	}
	_, err := c.run(ctx, command+c.port, c.password)
	return err
}

// resolve binds the controller to a hub: the configured port, or the
// first discovered hub when none was configured.
func (c *Controller) resolve(ctx context.Context) error {
	if c.codec != nil {
		return nil
	}

	var info HubInfo
	if c.port == "" {
		hubs, err := c.QueryHubs(ctx)
		if err != nil {
			return err
		}
		if len(hubs) == 0 {
			return ErrNoHubFound
		}
		info = hubs[0]
		c.port = info.Port
	} else {
		var err error
		info, err = c.QueryHubInfo(ctx, c.port)
		if err != nil {
			return err
		}
	}

	codec, err := portstate.NewCodec(info.NumPorts)
	if err != nil {
		return fmt.Errorf("hub reports unusable port count: %w", err)
	}
	c.numPorts = info.NumPorts
	c.codec = codec
	return nil
}

// decodeStatusHex decodes the vendor status-hex format: hex byte pairs
// in ascending port order, bits within each byte LSB first (the first
// byte pair covers ports 1-8). This differs from the codec's
// little-endian integer encoding only in byte order.
func decodeStatusHex(s string) (portstate.PortState, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty status field", ErrBadResponse)
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}

	states := make(portstate.PortState, 0, len(s)*4)
	for i := 0; i < len(s); i += 2 {
		b, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: bad status field %q", ErrBadResponse, s)
		}
		for bit := 0; bit < 8; bit++ {
			states = append(states, b>>uint(bit)&1 == 1)
		}
	}
	return states, nil
}

// parseWireBitmap parses the vendor bitmap format, which places port 1
// in the rightmost position.
func parseWireBitmap(s string) (portstate.PortState, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty bitmap field", ErrBadResponse)
	}

	states := make(portstate.PortState, len(s))
	for i := 0; i < len(s); i++ {
		switch s[len(s)-1-i] {
		case '1':
			states[i] = true
		case '0':
			states[i] = false
		default:
			return nil, fmt.Errorf("%w: bad bitmap field %q", ErrBadResponse, s)
		}
	}
	return states, nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
