package main

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/lantern/internal/config"
	"github.com/muurk/lantern/internal/executor"
	"github.com/muurk/lantern/internal/ui"
	"github.com/muurk/lantern/internal/wol"
)

var (
	devicesJSON bool

	addIP       string
	addMAC      string
	addHostname string
	addType     string
	addSSHUser  string
	addSSHPort  int
	addNotes    string

	removeYes bool
	pingCount int
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"device"},
	Short:   "Manage saved devices",
	Long: `Manage the named devices kept in the config file.

Saved names work anywhere a device is expected: 'lantern wake',
'lantern control' and 'lantern devices ping'.`,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved devices",
	Args:  cobra.NoArgs,
	RunE:  runDevicesList,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save a device or update a saved one",
	Example: `  lantern devices add desktop --mac AA:BB:CC:DD:EE:FF --ip 192.168.1.50
  lantern devices add nas --hostname nas.local --ssh-user admin`,
	Args: cobra.ExactArgs(1),
	RunE: runDevicesAdd,
}

var devicesRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a saved device",
	Args:    cobra.ExactArgs(1),
	RunE:    runDevicesRemove,
}

var devicesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a saved device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesShow,
}

var devicesPingCmd = &cobra.Command{
	Use:   "ping <name>",
	Short: "Ping a saved device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesPing,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd, devicesAddCmd, devicesRemoveCmd, devicesShowCmd, devicesPingCmd)

	devicesListCmd.Flags().BoolVarP(&devicesJSON, "json", "j", false, "Output in JSON format")
	devicesShowCmd.Flags().BoolVarP(&devicesJSON, "json", "j", false, "Output in JSON format")

	f := devicesAddCmd.Flags()
	f.StringVar(&addIP, "ip", "", "IP address")
	f.StringVar(&addMAC, "mac", "", "MAC address (for Wake-on-LAN)")
	f.StringVar(&addHostname, "hostname", "", "Hostname")
	f.StringVar(&addType, "type", config.DefaultDeviceType, "Device type (e.g. desktop, nas, tv)")
	f.StringVar(&addSSHUser, "ssh-user", "", "SSH user name")
	f.IntVar(&addSSHPort, "ssh-port", config.DefaultSSHPort, "SSH port")
	f.StringVar(&addNotes, "notes", "", "Free-form notes")

	devicesRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")
	devicesPingCmd.Flags().IntVarP(&pingCount, "count", "c", 0, "Number of echo requests (default: ping_count preference)")
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	devices := reg.ListDevices()

	if devicesJSON {
		if devices == nil {
			devices = []*config.Device{}
		}
		return p.JSON(devices)
	}

	if len(devices) == 0 {
		p.Warning("No saved devices.")
		p.Info("Add one with: lantern devices add <name> --ip <address>")
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.Name, d.DeviceType, orDash(d.IPAddress), orDash(d.MACAddress), orDash(d.Hostname)})
	}
	p.Newline()
	p.Println(ui.BoldStyle.Render("Saved Devices (" + strconv.Itoa(len(devices)) + ")"))
	p.PrintTable([]string{"Name", "Type", "IP Address", "MAC Address", "Hostname"}, rows)
	p.Newline()
	return nil
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	name := args[0]
	if addIP == "" && addMAC == "" && addHostname == "" {
		p.Error("A device needs at least one of --ip, --mac or --hostname")
		return errExit
	}

	mac := addMAC
	if mac != "" {
		norm, err := wol.NormalizeMAC(mac)
		if err != nil {
			p.Error(err.Error())
			return errExit
		}
		mac = norm
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	verb := "Saved"
	d := &config.Device{Name: name}
	if existing := reg.GetDevice(name); existing != nil {
		verb = "Updated"
		copied := *existing
		d = &copied
	}

	// An update keeps the fields whose flags were not given.
	flags := cmd.Flags()
	set := func(flag string, dst *string, value string) {
		if verb == "Saved" || flags.Changed(flag) {
			*dst = value
		}
	}
	set("ip", &d.IPAddress, addIP)
	set("mac", &d.MACAddress, mac)
	set("hostname", &d.Hostname, addHostname)
	set("type", &d.DeviceType, addType)
	set("ssh-user", &d.SSHUser, addSSHUser)
	set("notes", &d.Notes, addNotes)
	if verb == "Saved" || flags.Changed("ssh-port") {
		d.SSHPort = addSSHPort
	}
	reg.AddDevice(d)
	if err := reg.Save(); err != nil {
		return err
	}

	p.PrintResult(ui.NewSuccessResult(verb+" device "+name, deviceDetails(d)))
	return nil
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	name := args[0]
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	if reg.GetDevice(name) == nil {
		p.Error("Device not found: " + name)
		return errExit
	}

	if !removeYes && !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Remove device "+name+"?") {
		p.Muted("Cancelled")
		return nil
	}

	reg.RemoveDevice(name)
	if err := reg.Save(); err != nil {
		return err
	}
	p.Success("Removed device " + name)
	return nil
}

func runDevicesShow(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	d := reg.Lookup(args[0])
	if d == nil {
		p.Error("Device not found: " + args[0])
		return errExit
	}

	if devicesJSON {
		return p.JSON(d)
	}
	p.PrintHeader(ui.NewHeader(d.Name, d.DeviceType, deviceDetails(d)...))
	return nil
}

func runDevicesPing(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	d := reg.Lookup(args[0])
	if d == nil {
		p.Error("Device not found: " + args[0])
		return errExit
	}
	addr := d.Address()
	if addr == "" {
		p.Error("Device " + d.Name + " has no IP address or hostname")
		return errExit
	}

	count := pingCount
	if count <= 0 {
		count = reg.Preferences.PingCount
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	exec := executor.New()
	var result *executor.CommandResult
	err = ui.RunWithSpinner(ctx, p.Writer(), "Pinging "+addr+"...", func(ctx context.Context) error {
		var runErr error
		result, runErr = exec.Run(ctx, "ping", executor.PingArgs(runtime.GOOS, addr, count)...)
		return runErr
	})
	if err != nil {
		var notFound *executor.CommandNotFoundError
		if errors.As(err, &notFound) {
			p.Error("ping is not installed on this system")
			return errExit
		}
		return err
	}

	p.Println(ui.RenderOutputBox("ping "+addr, result.Output(), 20, p.Width()))
	if !result.Success() {
		p.PrintResult(ui.NewFailureResult(d.Name+" is unreachable", errors.New("ping exited with status "+strconv.Itoa(result.ReturnCode)), nil))
		return errExit
	}
	p.Success(d.Name + " is reachable (" + result.Duration.Round(time.Millisecond).String() + ")")
	return nil
}

func deviceDetails(d *config.Device) []ui.Detail {
	details := []ui.Detail{{Key: "Type", Value: d.DeviceType}}
	add := func(key, value string) {
		if value != "" {
			details = append(details, ui.Detail{Key: key, Value: value})
		}
	}
	add("IP Address", d.IPAddress)
	add("MAC Address", d.MACAddress)
	add("Hostname", d.Hostname)
	if d.SSHUser != "" {
		add("SSH", d.SSHUser+"@"+orDefault(d.Hostname, d.IPAddress)+":"+strconv.Itoa(d.SSHPort))
	}
	add("Notes", d.Notes)
	if !d.LastSeen.IsZero() {
		add("Last Seen", d.LastSeen.Local().Format(time.DateTime))
	}
	return details
}
