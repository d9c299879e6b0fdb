package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shanedertrain/cusbc/internal/executil"
	"github.com/shanedertrain/cusbc/internal/hub"
	_ "github.com/shanedertrain/cusbc/internal/logsetup"
	"github.com/shanedertrain/cusbc/internal/portstate"
	"github.com/shanedertrain/cusbc/internal/version"
	"github.com/spf13/pflag"
)

// commandArgs represents parsed command line arguments
type commandArgs struct {
	command string
	args    []string
	format  string
	timeout time.Duration
	hubCfg  hub.Config
}

func parseArgs(args []string, fs *pflag.FlagSet) (*commandArgs, error) {
	versionFlag := fs.Bool("version", false, "Show version and exit")
	helpFlag := fs.BoolP("help", "h", false, "Show help")
	executable := fs.String("executable", hub.DefaultExecutable, "Path to the vendor executable")
	port := fs.String("port", "", "COM port of the hub (default: first discovered hub)")
	password := fs.String("password", "", "Hub password for maintenance operations")
	format := fs.StringP("format", "f", "B", "State format (B or H)")
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout for vendor executable calls")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	cmdArgs := &commandArgs{
		format:  *format,
		timeout: *timeout,
		hubCfg: hub.Config{
			Executable: *executable,
			Port:       *port,
			Password:   *password,
		},
	}

	if *versionFlag {
		cmdArgs.command = "version"
		return cmdArgs, nil
	}

	remaining := fs.Args()
	if *helpFlag || len(remaining) == 0 {
		cmdArgs.command = "help"
		return cmdArgs, nil
	}

	cmdArgs.command = remaining[0]
	cmdArgs.args = remaining[1:]
	return cmdArgs, nil
}

// app holds the dependencies of the command dispatcher so tests can
// substitute the runner and output streams.
type app struct {
	runner executil.Runner
	stdout io.Writer
	stderr io.Writer
}

func (a *app) execute(cmdArgs *commandArgs) error {
	switch cmdArgs.command {
	case "version":
		version.ShowVersion()
		return nil
	case "help":
		a.showHelp()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmdArgs.timeout)
	defer cancel()

	ctrl := hub.New(cmdArgs.hubCfg, a.runner)

	switch cmdArgs.command {
	case "query":
		return a.cmdQuery(ctx, ctrl, cmdArgs.args)
	case "get":
		return a.cmdGet(ctx, ctrl, cmdArgs.args, cmdArgs.format)
	case "set":
		return a.cmdSet(ctx, ctrl, cmdArgs.args, cmdArgs.format)
	case "save":
		return a.cmdMaintenance(ctx, ctrl.SaveInitialStates, "save", cmdArgs.args)
	case "defaults":
		return a.cmdMaintenance(ctx, ctrl.RestoreFactoryDefaults, "defaults", cmdArgs.args)
	case "reset":
		return a.cmdMaintenance(ctx, ctrl.Reset, "reset", cmdArgs.args)
	case "passwd":
		return a.cmdPasswd(ctx, ctrl, cmdArgs.args)
	default:
		return fmt.Errorf("unknown command: %s", cmdArgs.command)
	}
}

func (a *app) showHelp() {
	//nolint:errcheck
	fmt.Fprintf(a.stdout, `cusbc - Control USB hub port power via the vendor executable

Usage: cusbc [flags] <command> [arguments]

Commands:
  query                List all connected hubs
  get                  Show the port states of the hub
  set <state>          Set all port states (bitmap, or hex with -f H)
  save                 Save current states as the power-on defaults
  defaults             Restore factory defaults
  reset                Reset the hub
  passwd <new>         Change the hub password
  help                 Show this help
  version              Show version information

Flags:
  --executable string  Path to the vendor executable (default %q)
  -f, --format string  State format (B or H) (default "B")
  -h, --help           Show help
  --password string    Hub password for maintenance operations
  --port string        COM port of the hub (default: first discovered hub)
  --timeout duration   Timeout for vendor executable calls (default 10s)
  --version            Show version and exit
`, hub.DefaultExecutable)
}

func (a *app) cmdQuery(ctx context.Context, ctrl *hub.Controller, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("query command takes no arguments")
	}

	hubs, err := ctrl.QueryHubs(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Hubs (%d total):\n", len(hubs)) //nolint:errcheck
	for _, h := range hubs {
		codec, err := portstate.NewCodec(h.NumPorts)
		if err != nil {
			return err
		}
		bitmap, err := codec.BitmapString(h.PortStates)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "  %s: %d ports, states %s, firmware %s\n", h.Port, h.NumPorts, bitmap, h.FirmwareVersion) //nolint:errcheck
	}

	return nil
}

func (a *app) cmdGet(ctx context.Context, ctrl *hub.Controller, args []string, format string) error {
	if len(args) > 0 {
		return fmt.Errorf("get command takes no arguments")
	}

	parsedFormat, err := hub.ParseFormat(format)
	if err != nil {
		return err
	}

	states, err := ctrl.GetPortStates(ctx, parsedFormat)
	if err != nil {
		return err
	}

	codec, err := portstate.NewCodec(uint(len(states)))
	if err != nil {
		return err
	}
	bitmap, err := codec.BitmapString(states)
	if err != nil {
		return err
	}
	hexState, err := codec.Encode(states)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Ports: %d (bitmap %s, hex %s)\n", len(states), bitmap, hexState) //nolint:errcheck
	for i, state := range states {
		status := "off"
		if state {
			status = "on"
		}
		fmt.Fprintf(a.stdout, "  port %d: %s\n", i+1, status) //nolint:errcheck
	}

	return nil
}

func (a *app) cmdSet(ctx context.Context, ctrl *hub.Controller, args []string, format string) error {
	if len(args) != 1 {
		return fmt.Errorf("set command requires exactly one state argument")
	}

	parsedFormat, err := hub.ParseFormat(format)
	if err != nil {
		return err
	}

	info, err := ctrl.Hub(ctx)
	if err != nil {
		return err
	}
	codec, err := portstate.NewCodec(info.NumPorts)
	if err != nil {
		return err
	}

	var states portstate.PortState
	if parsedFormat == hub.FormatBitmap {
		states, err = codec.ParseBitmap(args[0])
	} else {
		states, err = codec.Decode(args[0])
	}
	if err != nil {
		return err
	}

	if err := ctrl.SetPortStates(ctx, states, parsedFormat); err != nil {
		return err
	}

	bitmap, err := codec.BitmapString(states)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Ports set: %s\n", bitmap) //nolint:errcheck
	return nil
}

func (a *app) cmdMaintenance(ctx context.Context, op func(context.Context) error, name string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s command takes no arguments", name)
	}

	if err := op(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Hub %s completed\n", name) //nolint:errcheck
	return nil
}

func (a *app) cmdPasswd(ctx context.Context, ctrl *hub.Controller, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("passwd command requires exactly one argument")
	}

	if err := ctrl.ChangePassword(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "Password changed") //nolint:errcheck
	return nil
}

func main() {
	cmdArgs, err := parseArgs(os.Args[1:], pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}

	a := &app{
		runner: executil.ExecRunner{},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := a.execute(cmdArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
