package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escl-core/netscan/pkg/device"
)

func init() {
	rootCmd.AddCommand(newShellCommand())
}

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive mode: list scanners and run scans from a prompt",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, cleanup, err := newManager()
			if err != nil {
				return err
			}
			defer cleanup()

			runShell(mgr)
			return nil
		},
	}
}

func runShell(mgr *device.Manager) {
	reader := bufio.NewReader(os.Stdin)
	printShellHelp()

	for {
		fmt.Print("\nescl> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		parts := strings.Fields(strings.TrimSpace(input))
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			printShellHelp()

		case "list", "ls", "devices":
			infos := mgr.List()
			if len(infos) == 0 {
				fmt.Println("no scanners found")
				continue
			}
			for _, info := range infos {
				fmt.Printf("%-30s %s %s (%s)\n", info.Name, info.Vendor, info.Model, info.Type)
			}

		case "scan":
			name := ""
			output := "scan.pnm"
			if len(args) > 0 {
				name = args[0]
			}
			if len(args) > 1 {
				output = args[1]
			}
			if err := shellScan(mgr, name, output); err != nil {
				fmt.Printf("scan failed: %v\n", err)
			}

		case "quit", "exit", "q":
			return

		default:
			fmt.Printf("unknown command %q; try help\n", cmd)
		}
	}
}

func shellScan(mgr *device.Manager, name, output string) error {
	dev, err := mgr.Open(name)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Start(); err != nil {
		return err
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
}

func printShellHelp() {
	fmt.Println(`Commands:
  list                  list scanners found on the network
  scan [name] [file]    scan one page (default: first scanner, scan.pnm)
  help                  show this help
  quit                  exit`)
}
