package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/adapters"
	"github.com/muurk/lantern/internal/config"
	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
	"github.com/muurk/lantern/internal/logging"
	"github.com/muurk/lantern/internal/ui"
)

// exitError ends the process with code after the command has already
// printed its own message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var errExit = &exitError{code: 1}

// engineOptions lets tests swap probes and factories.
var engineOptions []discovery.Option

func printer(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(cmd.OutOrStdout())
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func loadRegistry() (*config.Registry, error) {
	reg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func newEngine(timeout time.Duration) *discovery.Engine {
	return adapters.NewEngine(timeout, engineOptions...)
}

// newSession builds the per-invocation device cache backed by the saved
// devices in reg.
func newSession(reg *config.Registry, timeout time.Duration) *control.Session {
	var book control.AddressBook
	if reg != nil {
		book = reg
	}
	return control.NewSession(newEngine(timeout), book)
}

// rememberDevices records discovered devices in the config file. Failures
// are logged only; discovery output does not depend on them.
func rememberDevices(reg *config.Registry, devices []control.Device) {
	if reg == nil || len(devices) == 0 {
		return
	}
	for _, d := range devices {
		reg.RememberDiscovered(d.Name(), d.IP(), d.Type())
	}
	if err := reg.Save(); err != nil {
		logging.Warn("Could not save discovered devices", zap.Error(err))
	}
}

// deviceNotFound prints the canonical lookup failure and returns errExit.
func deviceNotFound(p *ui.Printer, name string) error {
	p.Error("Device not found: " + name)
	p.Info("Run 'lantern control discover' to find devices.")
	return errExit
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
