package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shanedertrain/cusbc/internal/executil"
	"github.com/shanedertrain/cusbc/internal/portstate"
)

// fakeRunner serves canned vendor output keyed by the joined argument
// string and records every invocation.
type fakeRunner struct {
	responses map[string]string
	calls     [][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]string)}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := strings.Join(args, " ")
	if resp, ok := f.responses[key]; ok {
		return resp, nil
	}
	return "", fmt.Errorf("%w: no canned response for %q", executil.ErrExternalExecution, key)
}

func (f *fakeRunner) lastCall() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// newTestController returns a controller bound to a fake 4-port hub on
// COM3 with ports 1 and 3 powered.
func newTestController(password string) (*Controller, *fakeRunner) {
	runner := newFakeRunner()
	runner.responses["/Q -F"] = "0001COM3"
	runner.responses["/Q:COM3 -F"] = "05000000042.10"
	runner.responses["/G:COM3 -B"] = "0101"
	runner.responses["/G:COM3 -H"] = "05"

	ctrl := New(Config{Executable: "CUSBC.exe", Password: password}, runner)
	return ctrl, runner
}

func TestParseFormat(t *testing.T) {
	for _, tt := range []struct {
		input string
		want  Format
	}{
		{"B", FormatBitmap},
		{"b", FormatBitmap},
		{"H", FormatHex},
		{"h", FormatHex},
	} {
		got, err := ParseFormat(tt.input)
		if err != nil {
			t.Fatalf("ParseFormat(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if _, err := ParseFormat("X"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseFormat(\"X\") error = %v, want ErrInvalidFormat", err)
	}
}

func TestQueryHubs(t *testing.T) {
	ctrl, _ := newTestController("")

	hubs, err := ctrl.QueryHubs(context.Background())
	if err != nil {
		t.Fatalf("QueryHubs() failed: %v", err)
	}
	if len(hubs) != 1 {
		t.Fatalf("QueryHubs() returned %d hubs, want 1", len(hubs))
	}

	info := hubs[0]
	if info.Port != "COM3" {
		t.Errorf("Port = %q, want %q", info.Port, "COM3")
	}
	if info.NumPorts != 4 {
		t.Errorf("NumPorts = %d, want 4", info.NumPorts)
	}
	if info.FirmwareVersion != "2.10" {
		t.Errorf("FirmwareVersion = %q, want %q", info.FirmwareVersion, "2.10")
	}
	want := portstate.PortState{true, false, true, false}
	if len(info.PortStates) != len(want) {
		t.Fatalf("PortStates has %d entries, want %d", len(info.PortStates), len(want))
	}
	for i := range want {
		if info.PortStates[i] != want[i] {
			t.Errorf("PortStates[%d] = %v, want %v", i, info.PortStates[i], want[i])
		}
	}
}

func TestQueryHubsEmpty(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["/Q -F"] = "0000"
	ctrl := New(Config{}, runner)

	hubs, err := ctrl.QueryHubs(context.Background())
	if err != nil {
		t.Fatalf("QueryHubs() failed: %v", err)
	}
	if len(hubs) != 0 {
		t.Errorf("QueryHubs() returned %d hubs, want 0", len(hubs))
	}

	if _, err := ctrl.GetPortStates(context.Background(), FormatBitmap); !errors.Is(err, ErrNoHubFound) {
		t.Errorf("GetPortStates() error = %v, want ErrNoHubFound", err)
	}
}

func TestGetPortStatesBitmap(t *testing.T) {
	ctrl, _ := newTestController("")

	states, err := ctrl.GetPortStates(context.Background(), FormatBitmap)
	if err != nil {
		t.Fatalf("GetPortStates() failed: %v", err)
	}

	// Wire bitmap "0101" has port 1 rightmost.
	want := portstate.PortState{true, false, true, false}
	if len(states) != len(want) {
		t.Fatalf("GetPortStates() returned %d states, want %d", len(states), len(want))
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestGetPortStatesHex(t *testing.T) {
	ctrl, _ := newTestController("")

	states, err := ctrl.GetPortStates(context.Background(), FormatHex)
	if err != nil {
		t.Fatalf("GetPortStates() failed: %v", err)
	}

	want := portstate.PortState{true, false, true, false}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestSetPortStatesBitmap(t *testing.T) {
	ctrl, runner := newTestController("")
	runner.responses["/S:COM3 B:1101"] = ""

	states := portstate.PortState{true, false, true, true}
	if err := ctrl.SetPortStates(context.Background(), states, FormatBitmap); err != nil {
		t.Fatalf("SetPortStates() failed: %v", err)
	}

	// Port 1 first becomes port 1 rightmost on the wire.
	want := []string{"CUSBC.exe", "/S:COM3", "B:1101"}
	got := runner.lastCall()
	if len(got) != len(want) {
		t.Fatalf("vendor invocation = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vendor invocation arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetPortStatesHex(t *testing.T) {
	ctrl, runner := newTestController("")
	runner.responses["/S:COM3 H:D"] = ""

	states := portstate.PortState{true, false, true, true}
	if err := ctrl.SetPortStates(context.Background(), states, FormatHex); err != nil {
		t.Fatalf("SetPortStates() failed: %v", err)
	}

	got := runner.lastCall()
	if got[len(got)-1] != "H:D" {
		t.Errorf("state argument = %q, want %q", got[len(got)-1], "H:D")
	}
}

func TestSetPortStatesWithPassword(t *testing.T) {
	ctrl, runner := newTestController("secret")
	runner.responses["/S:COM3 secret B:0000"] = ""

	states := make(portstate.PortState, 4)
	if err := ctrl.SetPortStates(context.Background(), states, FormatBitmap); err != nil {
		t.Fatalf("SetPortStates() failed: %v", err)
	}

	got := runner.lastCall()
	if len(got) != 4 || got[2] != "secret" {
		t.Errorf("vendor invocation = %v, want password in position 2", got)
	}
}

func TestSetPortStatesInvalidLength(t *testing.T) {
	ctrl, _ := newTestController("")

	err := ctrl.SetPortStates(context.Background(), portstate.PortState{true, false}, FormatBitmap)
	if !errors.Is(err, portstate.ErrInvalidLength) {
		t.Errorf("SetPortStates() error = %v, want ErrInvalidLength", err)
	}
}

func TestSetPort(t *testing.T) {
	ctrl, runner := newTestController("")
	runner.responses["/S:COM3 B:1101"] = ""

	// Current state 1010 (port order); turning on port 4 yields 1011,
	// which is 1101 on the wire.
	if err := ctrl.SetPort(context.Background(), 3, true); err != nil {
		t.Fatalf("SetPort() failed: %v", err)
	}

	got := runner.lastCall()
	if got[len(got)-1] != "B:1101" {
		t.Errorf("state argument = %q, want %q", got[len(got)-1], "B:1101")
	}

	if err := ctrl.SetPort(context.Background(), 4, true); err == nil {
		t.Error("SetPort() with out-of-range index should fail")
	}
}

func TestMaintenanceRequiresPassword(t *testing.T) {
	ctrl, _ := newTestController("")
	ctx := context.Background()

	if err := ctrl.SaveInitialStates(ctx); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("SaveInitialStates() error = %v, want ErrPasswordRequired", err)
	}
	if err := ctrl.RestoreFactoryDefaults(ctx); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("RestoreFactoryDefaults() error = %v, want ErrPasswordRequired", err)
	}
	if err := ctrl.Reset(ctx); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("Reset() error = %v, want ErrPasswordRequired", err)
	}
	if err := ctrl.ChangePassword(ctx, "new"); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("ChangePassword() error = %v, want ErrPasswordRequired", err)
	}
}

func TestMaintenanceCommands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		invoke  func(*Controller) error
	}{
		{"save", "/W:COM3", func(c *Controller) error { return c.SaveInitialStates(context.Background()) }},
		{"defaults", "/D:COM3", func(c *Controller) error { return c.RestoreFactoryDefaults(context.Background()) }},
		{"reset", "/R:COM3", func(c *Controller) error { return c.Reset(context.Background()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, runner := newTestController("secret")
			runner.responses[tt.command+" secret"] = ""

			if err := tt.invoke(ctrl); err != nil {
				t.Fatalf("%s failed: %v", tt.name, err)
			}

			got := runner.lastCall()
			want := []string{"CUSBC.exe", tt.command, "secret"}
			if len(got) != len(want) {
				t.Fatalf("vendor invocation = %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("vendor invocation arg %d = %q, want %q", i, got[i], want[i])
				}
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	ctrl, runner := newTestController("old")
	runner.responses["/P:COM3 old new"] = ""
	runner.responses["/W:COM3 new"] = ""

	if err := ctrl.ChangePassword(context.Background(), "new"); err != nil {
		t.Fatalf("ChangePassword() failed: %v", err)
	}

	// Subsequent maintenance commands must use the new password.
	if err := ctrl.SaveInitialStates(context.Background()); err != nil {
		t.Fatalf("SaveInitialStates() after password change failed: %v", err)
	}
}

func TestDecodeStatusHex(t *testing.T) {
	// Two bytes: first byte pair covers ports 1-8.
	states, err := decodeStatusHex("01F8")
	if err != nil {
		t.Fatalf("decodeStatusHex() failed: %v", err)
	}
	if len(states) != 16 {
		t.Fatalf("decodeStatusHex() returned %d states, want 16", len(states))
	}
	// 0x01: port 1 on only.
	if !states[0] || states[1] {
		t.Errorf("first byte decoded incorrectly: %v", states[:8])
	}
	// 0xF8: ports 12-16 (bits 3-7 of the second byte).
	for i := 8; i < 11; i++ {
		if states[i] {
			t.Errorf("states[%d] = true, want false", i)
		}
	}
	for i := 11; i < 16; i++ {
		if !states[i] {
			t.Errorf("states[%d] = false, want true", i)
		}
	}

	if _, err := decodeStatusHex("zz"); !errors.Is(err, ErrBadResponse) {
		t.Errorf("decodeStatusHex(\"zz\") error = %v, want ErrBadResponse", err)
	}
	if _, err := decodeStatusHex(""); !errors.Is(err, ErrBadResponse) {
		t.Errorf("decodeStatusHex(\"\") error = %v, want ErrBadResponse", err)
	}
}

func TestHub(t *testing.T) {
	ctrl, _ := newTestController("")

	info, err := ctrl.Hub(context.Background())
	if err != nil {
		t.Fatalf("Hub() failed: %v", err)
	}
	if info.Port != "COM3" || info.NumPorts != 4 {
		t.Errorf("Hub() = %+v, want COM3 with 4 ports", info)
	}
	if ctrl.Port() != "COM3" {
		t.Errorf("Port() = %q after resolve, want %q", ctrl.Port(), "COM3")
	}
}
