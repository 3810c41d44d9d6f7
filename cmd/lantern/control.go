package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/config"
	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/discovery"
	"github.com/muurk/lantern/internal/logging"
	"github.com/muurk/lantern/internal/ui"
)

// Control command flags
var (
	discoverTimeout float64
	controlJSON     bool
	controlDevice   string
)

func init() {
	rootCmd.AddCommand(controlCmd)

	controlCmd.AddCommand(discoverCmd)
	controlCmd.AddCommand(listCmd)
	controlCmd.AddCommand(infoCmd)
	controlCmd.AddCommand(commandsCmd)
	controlCmd.AddCommand(runCmd)
	controlCmd.AddCommand(statusCmd)
	controlCmd.AddCommand(volumeCmd)
	controlCmd.AddCommand(powerCmd)

	discoverCmd.Flags().Float64VarP(&discoverTimeout, "timeout", "t", discovery.DefaultTimeout.Seconds(), "Discovery timeout in seconds")
	for _, c := range []*cobra.Command{discoverCmd, listCmd, infoCmd, commandsCmd, runCmd, statusCmd, volumeCmd, powerCmd} {
		c.Flags().BoolVarP(&controlJSON, "json", "j", false, "Output in JSON format")
	}
	for _, c := range []*cobra.Command{volumeCmd, powerCmd} {
		c.Flags().StringVarP(&controlDevice, "device", "d", "", "Device name or IP address")
		_ = c.MarkFlagRequired("device")
	}
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control networked devices (TVs, speakers, etc.)",
	Long: `Discover and control UPnP/DLNA renderers and Roku players.

Devices found by 'control discover' are remembered in the config file, so
later commands can address them by name. An IP address works too and
triggers a short targeted discovery.`,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover controllable devices on the network",
	Example: `  lantern control discover
  lantern control discover --timeout 10
  lantern control discover --json`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	timeout := seconds(discoverTimeout)
	if !controlJSON {
		p.Info(fmt.Sprintf("Discovering devices (timeout: %gs)...", discoverTimeout))
	}

	var devices []control.Device
	engine := newEngine(timeout)
	find := func(ctx context.Context) error {
		devices = engine.DiscoverAndCreateDevices(ctx)
		return nil
	}
	if controlJSON {
		_ = find(ctx)
	} else {
		_ = ui.RunWithSpinner(ctx, p.Writer(), "Scanning SSDP...", find)
	}

	if reg, err := loadRegistry(); err == nil {
		rememberDevices(reg, devices)
	} else {
		logging.Warn("Could not load config", zap.Error(err))
	}

	if controlJSON {
		infos := make([]control.Info, 0, len(devices))
		for _, d := range devices {
			infos = append(infos, d.Info())
		}
		return p.JSON(infos)
	}

	if len(devices) == 0 {
		p.Warning("No controllable devices found.")
		p.Info("Try increasing the timeout: lantern control discover --timeout 10")
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.Name(), d.Type(), d.IP(), orDash(d.Manufacturer()), orDash(capabilitySummary(d.Capabilities()))})
	}
	p.Newline()
	p.Println(ui.BoldStyle.Render(fmt.Sprintf("Controllable Devices (%d found)", len(devices))))
	p.PrintTable([]string{"Name", "Type", "IP Address", "Manufacturer", "Capabilities"}, rows)
	p.Newline()
	p.Info("Use 'lantern control commands <device>' to see available commands")
	return nil
}

// capabilitySummary names the first four capabilities and counts the rest.
func capabilitySummary(caps []control.Capability) string {
	names := make([]string, 0, 4)
	for i, c := range caps {
		if i == 4 {
			break
		}
		names = append(names, c.Name)
	}
	s := strings.Join(names, ", ")
	if len(caps) > 4 {
		s += fmt.Sprintf(" (+%d)", len(caps)-4)
	}
	return s
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List previously discovered devices",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	var remembered []*config.Device
	for _, d := range reg.ListDevices() {
		if d.IPAddress != "" && !d.LastSeen.IsZero() {
			remembered = append(remembered, d)
		}
	}

	if controlJSON {
		out := make([]map[string]any, 0, len(remembered))
		for _, d := range remembered {
			out = append(out, map[string]any{
				"name":        d.Name,
				"ip_address":  d.IPAddress,
				"device_type": d.DeviceType,
				"last_seen":   d.LastSeen,
			})
		}
		return p.JSON(out)
	}

	if len(remembered) == 0 {
		p.Warning("No devices in cache. Run 'lantern control discover' first.")
		return nil
	}

	rows := make([][]string, 0, len(remembered))
	for _, d := range remembered {
		rows = append(rows, []string{d.Name, d.DeviceType, d.IPAddress, d.LastSeen.Local().Format(time.DateTime)})
	}
	p.Newline()
	p.Println(ui.BoldStyle.Render(fmt.Sprintf("Known Devices (%d)", len(remembered))))
	p.PrintTable([]string{"Name", "Type", "IP Address", "Last Seen"}, rows)
	p.Newline()
	return nil
}

// resolveDevice finds a device by session cache, saved name or IP. It
// prints the canonical not-found message itself.
func resolveDevice(cmd *cobra.Command, p *ui.Printer, nameOrIP string) (control.Device, error) {
	reg, err := loadRegistry()
	if err != nil {
		logging.Warn("Could not load config", zap.Error(err))
	}
	session := newSession(reg, discovery.DefaultTimeout)

	var (
		dev control.Device
		ok  bool
	)
	locate := func(ctx context.Context) error {
		dev, ok = session.Resolve(ctx, nameOrIP)
		return nil
	}
	if controlJSON {
		_ = locate(cmd.Context())
	} else {
		_ = ui.RunWithSpinner(cmd.Context(), p.Writer(), "Looking for "+nameOrIP+"...", locate)
	}
	if !ok {
		return nil, deviceNotFound(p, nameOrIP)
	}
	return dev, nil
}

// ensureConnected connects dev so its capability list is populated.
func ensureConnected(ctx context.Context, dev control.Device) {
	if dev.Connected() {
		return
	}
	if err := dev.Connect(ctx); err != nil {
		logging.Debug("Connect failed", zap.String("device", dev.ID()), zap.Error(err))
	}
}

var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Show detailed information about a device",
	Example: `  lantern control info Family Room
  lantern control info 192.168.1.167`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	dev, err := resolveDevice(cmd, p, joinArgs(args))
	if err != nil {
		return err
	}
	ensureConnected(cmd.Context(), dev)

	if controlJSON {
		return p.JSON(dev.Info())
	}

	p.Newline()
	p.Println(ui.InfoStyle.Bold(true).Render(dev.Name()))
	p.Println("  Type: " + dev.Type())
	p.Println("  IP: " + dev.IP())
	if dev.Manufacturer() != "" {
		p.Println("  Manufacturer: " + dev.Manufacturer())
	}
	if dev.Model() != "" {
		p.Println("  Model: " + dev.Model())
	}
	if caps := dev.Capabilities(); len(caps) > 0 {
		p.Newline()
		p.Println(ui.BoldStyle.Render("Capabilities:"))
		for _, c := range caps {
			p.Println("  " + ui.InfoStyle.Render(c.Name) + ": " + c.Description)
			p.Println("    Actions: " + strings.Join(c.Actions, ", "))
		}
	}
	p.Newline()
	return nil
}

var commandsCmd = &cobra.Command{
	Use:   "commands <device>",
	Short: "List all available commands for a device",
	Example: `  lantern control commands Family Room
  lantern control commands Family Room --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommands,
}

func runCommands(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	dev, err := resolveDevice(cmd, p, joinArgs(args))
	if err != nil {
		return err
	}
	ensureConnected(cmd.Context(), dev)

	commands := dev.Commands()
	if controlJSON {
		if commands == nil {
			commands = []control.Command{}
		}
		return p.JSON(commands)
	}

	p.Newline()
	p.Println(ui.BoldStyle.Render("Commands for " + dev.Name()))
	p.Newline()

	var categories []string
	byCategory := make(map[string][]control.Command)
	for _, c := range commands {
		if _, ok := byCategory[c.Category]; !ok {
			categories = append(categories, c.Category)
		}
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	for _, category := range categories {
		p.Println(ui.InfoStyle.Bold(true).Render(titleCase(category)))
		for _, c := range byCategory[category] {
			p.Println("  " + ui.SuccessTitleStyle.UnsetBold().Render(c.Command) + usage(c.Parameters))
			p.Println("    " + c.Description)
		}
		p.Newline()
	}
	return nil
}

// usage renders required parameters as <name> and optional ones as [name].
func usage(params []control.Parameter) string {
	var b strings.Builder
	for _, param := range params {
		if param.Required {
			b.WriteString(" <" + param.Name + ">")
		} else {
			b.WriteString(" [" + param.Name + "]")
		}
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var runCmd = &cobra.Command{
	Use:   "run <device> <capability.action> [key=value ...]",
	Short: "Execute a command on a device",
	Long: `Execute a command on a device.

Commands are in the format capability.action, e.g. volume.set or power.on.
Arguments are key=value pairs; values are read as integers, then decimals,
then true/false, and otherwise kept as text.`,
	Example: `  lantern control run "Family Room" volume.get
  lantern control run "Family Room" volume.set level=50
  lantern control run "Family Room" power.on
  lantern control run Roku app.launch name=netflix`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	capability, action, ok := strings.Cut(args[1], ".")
	if !ok || capability == "" || action == "" {
		p.Error("Invalid command format: " + args[1])
		p.Info("Use capability.action format, e.g. volume.set")
		return errExit
	}

	dev, err := resolveDevice(cmd, p, args[0])
	if err != nil {
		return err
	}

	ensureConnected(cmd.Context(), dev)
	kwargs := control.ParseArgs(args[2:])
	if c, ok := dev.Capability(capability); ok {
		kwargs = c.ParseArgs(args[2:])
	}

	result := dev.Execute(cmd.Context(), capability, action, kwargs)
	return reportResult(p, result, capability+"."+action, "Command failed: ")
}

// reportResult prints an ActionResult and maps failure to exit status 1.
func reportResult(p *ui.Printer, result control.ActionResult, label, failurePrefix string) error {
	if controlJSON {
		if err := p.JSON(result); err != nil {
			return err
		}
		if !result.Success {
			return errExit
		}
		return nil
	}

	if !result.Success {
		p.Error(failurePrefix + result.Error)
		if result.Err != nil && !control.IsValidationError(result.Err) {
			p.Muted(control.GetTroubleshootingHint(result.Err))
		}
		return errExit
	}

	switch v := result.Value.(type) {
	case nil:
		p.Success(label + ": OK")
	case map[string]any:
		for _, k := range sortedKeys(v) {
			p.Printf("  %s: %s\n", k, formatValue(v[k]))
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Printf("  %s: %s\n", k, v[k])
		}
	default:
		p.Success(label + " = " + formatValue(v))
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

var statusCmd = &cobra.Command{
	Use:   "status <device>",
	Short: "Get current status of a device",
	Example: `  lantern control status Family Room
  lantern control status Family Room --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	dev, err := resolveDevice(cmd, p, joinArgs(args))
	if err != nil {
		return err
	}

	state := dev.RefreshState(cmd.Context())
	if controlJSON {
		return p.JSON(state)
	}

	status := ui.ErrorMessageStyle.Render("offline")
	if state.IsOnline {
		status = ui.SuccessTitleStyle.UnsetBold().Render("online")
	}

	p.Newline()
	p.Println(ui.InfoStyle.Bold(true).Render(dev.Name()))
	p.Println("  Status: " + status)
	if len(state.Values) > 0 {
		p.Newline()
		p.Println(ui.BoldStyle.Render("Current State:"))
		for _, k := range sortedKeys(state.Values) {
			p.Printf("  %s: %s\n", k, formatValue(state.Values[k]))
		}
	}
	p.Newline()
	return nil
}

var volumeCmd = &cobra.Command{
	Use:   "volume [get|set|up|down|mute|unmute] [level]",
	Short: "Control device volume",
	Example: `  lantern control volume -d "Family Room"
  lantern control volume -d "Family Room" set 50
  lantern control volume -d "Family Room" up
  lantern control volume -d "Family Room" mute`,
	Args: cobra.MaximumNArgs(2),
	RunE: runVolume,
}

func runVolume(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	action := "get"
	if len(args) > 0 {
		action = args[0]
	}
	kwargs := control.Args{}
	if len(args) > 1 {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid volume level %q: must be a whole number", args[1])
		}
		kwargs["level"] = level
	}

	dev, err := resolveDevice(cmd, p, controlDevice)
	if err != nil {
		return err
	}

	result := dev.Execute(cmd.Context(), "volume", action, kwargs)
	if result.Success && result.Value != nil && !controlJSON {
		p.Success("Volume: " + formatValue(result.Value))
		return nil
	}
	return reportResult(p, result, "Volume "+action, "Volume control failed: ")
}

var powerCmd = &cobra.Command{
	Use:   "power [get|on|off|toggle]",
	Short: "Control device power",
	Example: `  lantern control power -d "Roku TV"
  lantern control power -d "Roku TV" on
  lantern control power -d "Roku TV" off`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	action := "get"
	if len(args) > 0 {
		action = args[0]
	}

	dev, err := resolveDevice(cmd, p, controlDevice)
	if err != nil {
		return err
	}

	result := dev.Execute(cmd.Context(), "power", action, nil)
	if result.Success && result.Value != nil && !controlJSON {
		p.Success("Power: " + formatValue(result.Value))
		return nil
	}
	return reportResult(p, result, "Power "+action, "Power control failed: ")
}
