package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/lantern/internal/discovery"
	"github.com/muurk/lantern/internal/ui"
)

var (
	servicesTimeout float64
	servicesJSON    bool
)

var servicesCmd = &cobra.Command{
	Use:   "services [type]",
	Short: "Browse mDNS/Bonjour services on the network",
	Long: `Browse services advertised over mDNS (Bonjour/Avahi).

Without a type, a table of well-known service types is browsed at once.
A type may be given in full (_http._tcp) or as shorthand (http).`,
	Example: `  lantern services
  lantern services airplay
  lantern services _ssh._tcp --timeout 5 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)

	servicesCmd.Flags().Float64VarP(&servicesTimeout, "timeout", "t", discovery.DefaultBrowseTimeout.Seconds(), "Browse timeout in seconds")
	servicesCmd.Flags().BoolVarP(&servicesJSON, "json", "j", false, "Output in JSON format")
}

func runServices(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	timeout := seconds(servicesTimeout)
	label := "Browsing common service types..."
	var serviceType string
	if len(args) > 0 {
		serviceType = discovery.NormalizeServiceType(args[0])
		label = "Browsing " + serviceType + "..."
	}

	var services []discovery.ServiceInfo
	browse := func(ctx context.Context) error {
		if serviceType == "" {
			services = discovery.BrowseAll(ctx, discovery.CommonTypes(), timeout)
			return nil
		}
		var err error
		services, err = discovery.BrowseServices(ctx, serviceType, timeout)
		return err
	}

	var err error
	if servicesJSON {
		err = browse(ctx)
	} else {
		err = ui.RunWithSpinner(ctx, p.Writer(), label, browse)
	}
	if err != nil {
		return err
	}

	if servicesJSON {
		if services == nil {
			services = []discovery.ServiceInfo{}
		}
		return p.JSON(services)
	}

	if len(services) == 0 {
		p.Warning("No services found.")
		p.Info(fmt.Sprintf("Try a longer timeout: lantern services --timeout %g", servicesTimeout*2))
		return nil
	}

	groups := discovery.GroupByType(services)
	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	rows := make([][]string, 0, len(services))
	for _, t := range types {
		for _, s := range groups[t] {
			addr := "-"
			if len(s.Addresses) > 0 {
				addr = s.Addresses[0]
			}
			port := "-"
			if s.Port > 0 {
				port = strconv.Itoa(s.Port)
			}
			rows = append(rows, []string{s.FriendlyName(), s.Name, orDash(s.Host), addr, port})
		}
	}

	p.Newline()
	p.Println(ui.BoldStyle.Render(fmt.Sprintf("mDNS Services (%d found in %d types)", len(services), len(types))))
	p.PrintTable([]string{"Service", "Name", "Host", "Address", "Port"}, rows)
	if len(types) > 0 && serviceType == "" {
		p.Info("Browse one type in detail: lantern services " + strings.TrimPrefix(strings.SplitN(types[0], ".", 2)[0], "_"))
	}
	p.Newline()
	return nil
}
