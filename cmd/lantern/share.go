package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/lantern/internal/fileserver"
	"github.com/muurk/lantern/internal/qr"
	"github.com/muurk/lantern/internal/ui"
)

var (
	sharePort   int
	shareNoQR   bool
	dropTimeout float64
)

// defaultDropTimeout is how long drop waits for the single download.
const defaultDropTimeout = 300 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [directory]",
	Short: "Share a directory over HTTP with a browsable listing",
	Long: `Share a directory over HTTP on the local network.

Anyone on the network can browse and download files until you press
Ctrl+C. Paths outside the directory are refused.`,
	Example: `  lantern serve
  lantern serve ~/Downloads --port 8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var dropCmd = &cobra.Command{
	Use:   "drop <file>",
	Short: "Share a single file for one download",
	Long: `Share one file over HTTP and stop after it has been downloaded once,
or when the timeout expires. A QR code of the download link is shown for
phones.`,
	Example: `  lantern drop report.pdf
  lantern drop photo.jpg --timeout 60 --no-qr`,
	Args: cobra.ExactArgs(1),
	RunE: runDrop,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dropCmd)

	for _, c := range []*cobra.Command{serveCmd, dropCmd} {
		c.Flags().IntVarP(&sharePort, "port", "p", 0, fmt.Sprintf("Port to listen on (default: first free port from %d)", fileserver.DefaultPortStart))
		c.Flags().BoolVar(&shareNoQR, "no-qr", false, "Do not show a QR code")
	}
	dropCmd.Flags().Float64VarP(&dropTimeout, "timeout", "t", defaultDropTimeout.Seconds(), "Seconds to wait for the download")
}

func runServe(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	st, err := os.Stat(dir)
	if err != nil {
		p.Error("Directory not found: " + dir)
		return errExit
	}
	if !st.IsDir() {
		p.Error("Not a directory: " + dir)
		p.Info("Use 'lantern drop " + dir + "' to share a single file.")
		return errExit
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	srv, info, err := startShare(ctx, dir, false)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	printShare(p, "SHARING DIRECTORY", info)
	p.Info("Press Ctrl+C to stop sharing")

	<-ctx.Done()
	p.Newline()
	p.Success(fmt.Sprintf("Stopped sharing (%d downloads)", srv.Downloads()))
	return nil
}

func runDrop(cmd *cobra.Command, args []string) error {
	p := printer(cmd)
	file := args[0]
	st, err := os.Stat(file)
	if err != nil {
		p.Error("File not found: " + file)
		return errExit
	}
	if st.IsDir() {
		p.Error("Not a file: " + file)
		p.Info("Use 'lantern serve " + file + "' to share a directory.")
		return errExit
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	srv, info, err := startShare(ctx, file, true)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	printShare(p, "DROPPING FILE", info, ui.Detail{Key: "Size", Value: fileserver.FormatSize(st.Size())})

	timeout := seconds(dropTimeout)
	p.Info("Waiting for download (timeout: " + strconv.FormatFloat(dropTimeout, 'f', -1, 64) + "s)...")

	waitCtx, waitCancel := context.WithTimeout(ctx, timeout)
	defer waitCancel()
	if srv.WaitForDownload(waitCtx) {
		p.Success("File downloaded successfully!")
		return nil
	}
	if ctx.Err() != nil {
		p.Warning("Cancelled. No download occurred.")
		return nil
	}
	p.Warning("Timeout reached. No download occurred.")
	return nil
}

func startShare(ctx context.Context, p string, oneShot bool) (*fileserver.Server, fileserver.Info, error) {
	srv, err := fileserver.New(p, fileserver.Options{Port: sharePort, OneShot: oneShot})
	if err != nil {
		return nil, fileserver.Info{}, err
	}
	info, err := srv.Start(ctx)
	if err != nil {
		return nil, fileserver.Info{}, err
	}
	return srv, info, nil
}

func printShare(p *ui.Printer, title string, info fileserver.Info, extra ...ui.Detail) {
	params := []ui.Detail{
		{Key: "Path", Value: info.Path},
		{Key: "URL", Value: info.DownloadURL()},
		{Key: "Local", Value: info.LocalURL},
	}
	params = append(params, extra...)
	p.PrintHeader(ui.NewHeader(title, filepath.Base(info.Path), params...))

	if shareNoQR {
		return
	}
	code, err := qr.Render(info.DownloadURL(), qr.Options{Border: 1, Compact: true})
	if err != nil {
		p.Warning("Could not render QR code: " + err.Error())
		return
	}
	p.Println(ui.RenderPanel("Scan to download", code, info.DownloadURL()))
}
