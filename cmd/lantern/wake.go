package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/logging"
	"github.com/muurk/lantern/internal/ui"
	"github.com/muurk/lantern/internal/wol"
)

var (
	wakePort      int
	wakeBroadcast string
	wakeCount     int
	wakeJSON      bool
)

// wakeInterval separates repeated magic packets.
const wakeInterval = 100 * time.Millisecond

var wakeCmd = &cobra.Command{
	Use:   "wake <device|mac>",
	Short: "Wake a machine with a Wake-on-LAN magic packet",
	Long: `Send a Wake-on-LAN magic packet.

The target is a saved device name (see 'lantern devices add') or a MAC
address. When a saved device also has an IP address, the packet goes to
that /24 broadcast address unless --broadcast is given.`,
	Example: `  lantern wake desktop
  lantern wake AA:BB:CC:DD:EE:FF
  lantern wake aa-bb-cc-dd-ee-ff --broadcast 192.168.1.255 --count 3`,
	Args: cobra.ExactArgs(1),
	RunE: runWake,
}

func init() {
	rootCmd.AddCommand(wakeCmd)

	wakeCmd.Flags().IntVarP(&wakePort, "port", "p", wol.DefaultPort, "UDP port (7 and 9 are common)")
	wakeCmd.Flags().StringVarP(&wakeBroadcast, "broadcast", "b", "", "Broadcast address (default: 255.255.255.255 or the saved device's subnet)")
	wakeCmd.Flags().IntVarP(&wakeCount, "count", "c", 1, "Number of packets to send")
	wakeCmd.Flags().BoolVarP(&wakeJSON, "json", "j", false, "Output in JSON format")
}

func runWake(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	target := args[0]
	mac := target
	broadcast := wakeBroadcast
	deviceName := ""

	if reg, err := loadRegistry(); err == nil {
		if d := reg.Lookup(target); d != nil {
			if d.MACAddress == "" {
				p.Error("Device " + d.Name + " has no MAC address")
				p.Info("Add one with: lantern devices add " + d.Name + " --mac AA:BB:CC:DD:EE:FF")
				return errExit
			}
			deviceName = d.Name
			mac = d.MACAddress
			if broadcast == "" && d.IPAddress != "" {
				if b, err := wol.SubnetBroadcast(d.IPAddress, ""); err == nil {
					broadcast = b
				}
			}
		}
	} else {
		logging.Warn("Could not load config", zap.Error(err))
	}

	if _, err := wol.NormalizeMAC(mac); err != nil {
		if wakeJSON {
			_ = p.JSON(wol.Result{MAC: mac, Broadcast: orDefault(broadcast, wol.DefaultBroadcast), Port: wakePort, Error: err.Error()})
			return errExit
		}
		p.Error(err.Error())
		p.Info("Use a saved device name or a MAC address like AA:BB:CC:DD:EE:FF")
		return errExit
	}

	count := max(wakeCount, 1)
	var res wol.Result
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(wakeInterval):
			}
		}
		res = wol.Send(cmd.Context(), mac, broadcast, wakePort)
		if !res.Success {
			break
		}
	}
	logging.Info("Wake-on-LAN",
		zap.String("mac", res.MAC),
		zap.String("broadcast", res.Broadcast),
		zap.Int("port", res.Port),
		zap.Int("count", count),
		zap.Bool("success", res.Success),
	)

	if wakeJSON {
		if err := p.JSON(res); err != nil {
			return err
		}
		if !res.Success {
			return errExit
		}
		return nil
	}

	if !res.Success {
		p.PrintResult(ui.NewFailureResult("Wake-on-LAN", errors.New(res.Error), []string{
			"Check that the broadcast address matches your subnet",
			"Some networks block broadcast traffic between VLANs",
		}))
		return errExit
	}

	details := []ui.Detail{
		{Key: "MAC", Value: res.MAC},
		{Key: "Broadcast", Value: res.Broadcast},
		{Key: "Port", Value: strconv.Itoa(res.Port)},
		{Key: "Packets", Value: strconv.Itoa(count)},
	}
	if deviceName != "" {
		details = append([]ui.Detail{{Key: "Device", Value: deviceName}}, details...)
	}
	p.PrintResult(ui.NewSuccessResult("Magic packet sent", details))
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
