// Command esclscand discovers eSCL network scanners and drives them from
// the command line: list what is on the network, or run a scan and save the
// page as a PNM file.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/escl-core/netscan/pkg/config"
	"github.com/escl-core/netscan/pkg/device"
	"github.com/escl-core/netscan/pkg/discovery"
	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/status"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "esclscand",
	Short: "Drive eSCL network scanners discovered over mDNS",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "esclscand.yaml", "configuration file path")
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newScanCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager builds and initializes the device manager from the config
// file, with a real mDNS browser and, if configured, a CBOR activity log.
func newManager() (*device.Manager, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var logger log.Logger = log.NoopLogger{}
	var closeLog func()
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		logger = fl
		closeLog = func() { fl.Close() }
	}

	httpCli := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: httpactivity.NewClientTLSConfig(&httpactivity.TLSConfig{
				InsecureSkipVerify: cfg.InsecureTLS,
			}),
		},
	}

	mgr := device.NewManager(device.ManagerConfig{
		Logger:     logger,
		Conf:       cfg,
		HTTPClient: httpCli,
		Browser:    discovery.NewZeroconfBrowser(discovery.DefaultBrowserConfig()),
	})
	if err := mgr.Init(); err != nil {
		if closeLog != nil {
			closeLog()
		}
		return nil, nil, err
	}

	cleanup := func() {
		mgr.Cleanup()
		if closeLog != nil {
			closeLog()
		}
	}
	return mgr, cleanup, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scanners found on the network",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, cleanup, err := newManager()
			if err != nil {
				return err
			}
			defer cleanup()

			infos := mgr.List()
			if len(infos) == 0 {
				fmt.Println("no scanners found")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%-30s %s %s (%s)\n", info.Name, info.Vendor, info.Model, info.Type)
			}
			return nil
		},
	}
}

func newScanCommand() *cobra.Command {
	var deviceName, output string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one page and write it as a PNM file",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, cleanup, err := newManager()
			if err != nil {
				return err
			}
			defer cleanup()

			dev, err := mgr.Open(deviceName)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer dev.Close()

			if err := dev.Start(); err != nil {
				return fmt.Errorf("start: %w", err)
			}

			params, err := dev.GetParameters()
			if err != nil {
				return err
			}
			if err := writePNM(dev, params, output); err != nil {
				return err
			}

			fmt.Printf("wrote %s (%dx%d)\n", output, params.PixelsPerLine, params.Lines)
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceName, "device", "", "device name (default: first ready scanner)")
	cmd.Flags().StringVar(&output, "output", "scan.pnm", "output file path")
	return cmd
}

// writePNM drains one scanned page into a binary PNM file: P6 for RGB
// frames, P5 for grayscale.
func writePNM(dev *device.Device, params options.Parameters, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := "P5"
	if params.Format == "RGB" {
		magic = "P6"
	}
	fmt.Fprintf(f, "%s\n%d %d\n255\n", magic, params.PixelsPerLine, params.Lines)

	buf := make([]byte, 64*1024)
	for {
		n, err := dev.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if status.CodeOf(err) == status.EOF {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
