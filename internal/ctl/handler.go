package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shanedertrain/cusbc/internal/hub"
	"github.com/shanedertrain/cusbc/internal/portstate"
	"github.com/shanedertrain/cusbc/internal/version"
	"github.com/spf13/pflag"
)

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PortsResponse mirrors the server's whole-hub state payload.
type PortsResponse struct {
	Count  uint   `json:"count"`
	States []bool `json:"states"`
	Bitmap string `json:"bitmap"`
	Hex    string `json:"hex"`
}

// PortResponse mirrors the server's single-port payload.
type PortResponse struct {
	Port  uint `json:"port"`
	State bool `json:"state"`
}

type portRequest struct {
	State string `json:"state"`
}

type portsRequest struct {
	Bitmap *string `json:"bitmap,omitempty"`
	Hex    *string `json:"hex,omitempty"`
}

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CLI represents the command line interface
type CLI struct {
	config     *Config
	httpClient HTTPClient
	stdout     io.Writer
	stderr     io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(cfg *Config, httpClient HTTPClient, stdout, stderr io.Writer) *CLI {
	return &CLI{
		config:     cfg,
		httpClient: httpClient,
		stdout:     stdout,
		stderr:     stderr,
	}
}

// CommandArgs represents parsed command line arguments
type CommandArgs struct {
	Command string
	Args    []string
	Format  string
	Config  *Config
}

// ParseArgs parses command line arguments using pflag.CommandLine
func ParseArgs(args []string) (*CommandArgs, error) {
	return ParseArgsWithFlagSet(args, pflag.CommandLine)
}

// ParseArgsWithFlagSet parses command line arguments with a custom flag set (for testing)
func ParseArgsWithFlagSet(args []string, fs *pflag.FlagSet) (*CommandArgs, error) {
	versionFlag := fs.Bool("version", false, "Show version and exit")
	helpFlag := fs.BoolP("help", "h", false, "Show help")

	cfg := NewConfig()
	cfg.AddFlags(fs)

	format := fs.StringP("format", "f", "B", "State format for the set command (B or H)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *versionFlag {
		return &CommandArgs{Command: "version", Config: cfg}, nil
	}
	if *helpFlag {
		return &CommandArgs{Command: "help", Config: cfg}, nil
	}

	remainingArgs := fs.Args()
	if len(remainingArgs) == 0 {
		return &CommandArgs{Command: "help", Config: cfg}, nil
	}

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &CommandArgs{
		Command: remainingArgs[0],
		Args:    remainingArgs[1:],
		Format:  *format,
		Config:  cfg,
	}, nil
}

// Execute runs the specified command
func (c *CLI) Execute(cmdArgs *CommandArgs) error {
	switch cmdArgs.Command {
	case "version":
		version.ShowVersion()
		return nil
	case "help":
		c.showHelp()
		return nil
	case "hubs":
		return c.cmdHubs(cmdArgs.Args)
	case "status":
		return c.cmdStatus(cmdArgs.Args)
	case "on":
		return c.cmdSetPort(cmdArgs.Args, true)
	case "off":
		return c.cmdSetPort(cmdArgs.Args, false)
	case "set":
		return c.cmdSet(cmdArgs.Args, cmdArgs.Format)
	case "encode":
		return c.cmdEncode(cmdArgs.Args)
	case "decode":
		return c.cmdDecode(cmdArgs.Args)
	case "save":
		return c.cmdMaintenance("save", cmdArgs.Args)
	case "defaults":
		return c.cmdMaintenance("defaults", cmdArgs.Args)
	case "reset":
		return c.cmdMaintenance("reset", cmdArgs.Args)
	default:
		return fmt.Errorf("unknown command: %s", cmdArgs.Command)
	}
}

func (c *CLI) showHelp() {
	//nolint:errcheck
	fmt.Fprintf(c.stdout, `cusbcctl - Command line tool for controlling USB hub port power

Usage: cusbcctl [flags] <command> [arguments]

Commands:
  hubs                 List all hubs the server can see
  status               Show the state of every port
  on <port>            Power on a port (ports are numbered from 1)
  off <port>           Power off a port
  set <state>          Set all ports at once (bitmap, or hex with -f H)
  encode <bitmap>      Encode a bitmap state string as hex (local)
  decode <hex>         Decode a hex state string into a bitmap (local)
  save                 Save current states as the hub's power-on defaults
  defaults             Restore the hub's factory defaults
  reset                Reset the hub
  help                 Show this help
  version              Show version information

Flags:
  --config string      Config file to use (default %q)
  -f, --format string  State format for the set command (B or H) (default "B")
  -h, --help           Show help
  -n, --port-count uint Port count for local encode/decode
  --server-url string  API server URL (default %q)
  --version            Show version and exit
`, getDefaultConfigFile(), defaultServerURL)
}

func (c *CLI) cmdHubs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("hubs command takes no arguments")
	}

	resp, err := c.makeAPIRequest("GET", "/hubs", nil)
	if err != nil {
		return err
	}

	var hubs []hub.HubInfo
	if err := json.Unmarshal(resp.Data, &hubs); err != nil {
		return fmt.Errorf("error parsing hub data: %w", err)
	}

	fmt.Fprintf(c.stdout, "Hubs (%d total):\n", len(hubs)) //nolint:errcheck
	for _, h := range hubs {
		on := 0
		for _, state := range h.PortStates {
			if state {
				on++
			}
		}
		fmt.Fprintf(c.stdout, "  %s: %d ports (%d on), firmware %s\n", h.Port, h.NumPorts, on, h.FirmwareVersion) //nolint:errcheck
	}

	return nil
}

func (c *CLI) cmdStatus(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("status command takes no arguments")
	}

	resp, err := c.makeAPIRequest("GET", "/ports", nil)
	if err != nil {
		return err
	}

	var ports PortsResponse
	if err := json.Unmarshal(resp.Data, &ports); err != nil {
		return fmt.Errorf("error parsing port data: %w", err)
	}

	fmt.Fprintf(c.stdout, "Ports: %d (bitmap %s, hex %s)\n", ports.Count, ports.Bitmap, ports.Hex) //nolint:errcheck
	for i, state := range ports.States {
		status := "off"
		if state {
			status = "on"
		}
		fmt.Fprintf(c.stdout, "  port %d: %s\n", i+1, status) //nolint:errcheck
	}

	return nil
}

func (c *CLI) cmdSetPort(args []string, on bool) error {
	if len(args) != 1 {
		return fmt.Errorf("command requires exactly one port argument")
	}

	state := "off"
	if on {
		state = "on"
	}

	reqBody, err := json.Marshal(portRequest{State: state})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := c.makeAPIRequest("POST", "/port/"+args[0], reqBody); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Port %s turned %s\n", args[0], state) //nolint:errcheck
	return nil
}

func (c *CLI) cmdSet(args []string, format string) error {
	if len(args) != 1 {
		return fmt.Errorf("set command requires exactly one state argument")
	}

	parsedFormat, err := hub.ParseFormat(format)
	if err != nil {
		return err
	}

	var req portsRequest
	if parsedFormat == hub.FormatBitmap {
		req.Bitmap = &args[0]
	} else {
		req.Hex = &args[0]
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeAPIRequest("POST", "/ports", reqBody)
	if err != nil {
		return err
	}

	var ports PortsResponse
	if err := json.Unmarshal(resp.Data, &ports); err != nil {
		return fmt.Errorf("error parsing port data: %w", err)
	}

	fmt.Fprintf(c.stdout, "Ports set: bitmap %s, hex %s\n", ports.Bitmap, ports.Hex) //nolint:errcheck
	return nil
}

// encodeCodec builds a codec for the local encode/decode commands,
// inferring the port count from the bitmap length when the flag is
// unset.
func (c *CLI) encodeCodec(bitmapLen int) (*portstate.Codec, error) {
	portCount := c.config.PortCount
	if portCount == 0 {
		portCount = uint(bitmapLen)
	}
	return portstate.NewCodec(portCount)
}

func (c *CLI) cmdEncode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("encode command requires exactly one bitmap argument")
	}

	codec, err := c.encodeCodec(len(args[0]))
	if err != nil {
		return err
	}

	states, err := codec.ParseBitmap(args[0])
	if err != nil {
		return err
	}

	encoded, err := codec.Encode(states)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%s\n", encoded) //nolint:errcheck
	return nil
}

func (c *CLI) cmdDecode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("decode command requires exactly one hex argument")
	}
	if c.config.PortCount == 0 {
		return fmt.Errorf("decode requires an explicit port count (--port-count)")
	}

	codec, err := portstate.NewCodec(c.config.PortCount)
	if err != nil {
		return err
	}

	states, err := codec.Decode(args[0])
	if err != nil {
		return err
	}

	bitmap, err := codec.BitmapString(states)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%s\n", bitmap) //nolint:errcheck
	return nil
}

func (c *CLI) cmdMaintenance(op string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s command takes no arguments", op)
	}

	if _, err := c.makeAPIRequest("POST", "/hub/"+op, nil); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Hub %s completed\n", op) //nolint:errcheck
	return nil
}

func (c *CLI) makeAPIRequest(method, path string, body []byte) (*APIResponse, error) {
	url := c.config.ServerURL + path

	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequest(method, url, strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("API error: %s", apiResp.Message)
	}

	return &apiResp, nil
}
