package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/lantern/internal/qr"
	"github.com/muurk/lantern/internal/ui"
)

var (
	qrInvert  bool
	qrBorder  int
	qrCompact bool

	wifiPassword string
	wifiSecurity string
	wifiHidden   bool
)

var qrCmd = &cobra.Command{
	Use:   "qr <text>",
	Short: "Render text as a QR code in the terminal",
	Example: `  lantern qr https://example.com
  lantern qr "hello there" --compact
  lantern qr wifi HomeNetwork --password hunter22`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := joinArgs(args)
		return printQR(printer(cmd), "QR Code", text, text)
	},
}

var qrWiFiCmd = &cobra.Command{
	Use:   "wifi <ssid>",
	Short: "Render a QR code that joins a Wi-Fi network",
	Long: `Render a Wi-Fi join QR code. Phone cameras offer to connect when they
scan it.

Security is WPA, WEP or nopass; anything else with a password is WPA.`,
	Example: `  lantern qr wifi HomeNetwork --password hunter22
  lantern qr wifi "Guest WiFi" --security nopass
  lantern qr wifi Hidden --password secret --hidden`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := joinArgs(args)
		payload := qr.WiFiPayload(ssid, wifiPassword, wifiSecurity, wifiHidden)

		caption := "Network: " + ssid + "  Security: " + qr.NormalizeSecurity(wifiSecurity, wifiPassword)
		if wifiHidden {
			caption += "  (hidden)"
		}
		return printQR(printer(cmd), "Wi-Fi: "+ssid, payload, caption)
	},
}

func init() {
	rootCmd.AddCommand(qrCmd)
	qrCmd.AddCommand(qrWiFiCmd)

	qrCmd.PersistentFlags().BoolVarP(&qrInvert, "invert", "i", false, "Invert colours (for light terminal backgrounds)")
	qrCmd.PersistentFlags().IntVar(&qrBorder, "border", qr.DefaultOptions().Border, "Quiet zone width in modules")
	qrCmd.PersistentFlags().BoolVar(&qrCompact, "compact", false, "Use half-block characters for a smaller code")

	qrWiFiCmd.Flags().StringVarP(&wifiPassword, "password", "p", "", "Network password")
	qrWiFiCmd.Flags().StringVarP(&wifiSecurity, "security", "s", qr.SecurityWPA, "Security type: WPA, WEP or nopass")
	qrWiFiCmd.Flags().BoolVar(&wifiHidden, "hidden", false, "The network does not broadcast its SSID")
}

func qrOptions() qr.Options {
	return qr.Options{Border: max(qrBorder, 0), Invert: qrInvert, Compact: qrCompact}
}

func printQR(p *ui.Printer, title, payload, caption string) error {
	code, err := qr.Render(payload, qrOptions())
	if err != nil {
		return err
	}
	if r := []rune(caption); len(r) > 60 {
		caption = string(r[:57]) + "..."
	}
	p.Println(ui.RenderPanel(title, strings.TrimRight(code, "\n"), caption))
	return nil
}
