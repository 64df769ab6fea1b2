// Command steerctl is the admin CLI for steerd: it permits a MAC address,
// prints the hearing map or network overview, and can launch an
// interactive console, all against a running daemon's RPC surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"steerd.dev/steerd/internal/ctlclient"
	"steerd.dev/steerd/internal/tui"
)

const defaultRPCAddr = "http://127.0.0.1:9090"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	addrFlag := flag.String("addr", defaultRPCAddr, "steerd RPC base URL")

	switch os.Args[1] {
	case "add-mac":
		fs := flag.NewFlagSet("add-mac", flag.ExitOnError)
		fs.StringVar(addrFlag, "addr", defaultRPCAddr, "steerd RPC base URL")
		fs.Parse(os.Args[2:])
		mac := fs.Arg(0)
		if mac == "" {
			var err error
			mac, err = promptForMAC()
			if err != nil {
				fmt.Fprintf(os.Stderr, "add-mac cancelled: %v\n", err)
				os.Exit(1)
			}
		}
		runAddMAC(*addrFlag, mac)

	case "hearing-map":
		fs := flag.NewFlagSet("hearing-map", flag.ExitOnError)
		fs.StringVar(addrFlag, "addr", defaultRPCAddr, "steerd RPC base URL")
		fs.Parse(os.Args[2:])
		runHearingMap(*addrFlag)

	case "network":
		fs := flag.NewFlagSet("network", flag.ExitOnError)
		fs.StringVar(addrFlag, "addr", defaultRPCAddr, "steerd RPC base URL")
		fs.Parse(os.Args[2:])
		runNetwork(*addrFlag)

	case "console":
		fs := flag.NewFlagSet("console", flag.ExitOnError)
		fs.StringVar(addrFlag, "addr", defaultRPCAddr, "steerd RPC base URL")
		fs.Parse(os.Args[2:])
		runConsole(*addrFlag)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`steerctl - admin CLI for steerd

Usage:
  steerctl <command> [-addr url] [args]

Commands:
  add-mac <mac>   Permit a MAC address, bypassing deny logic
  hearing-map     Print the ssid -> client -> bssid hearing table as JSON
  network         Print the ssid -> bssid network overview as JSON
  console         Launch the interactive network overview console
`)
}

func promptForMAC() (string, error) {
	var mac string
	field := huh.NewInput().
		Title("MAC address to permit").
		Placeholder("AA:BB:CC:DD:EE:FF").
		Value(&mac).
		Validate(func(s string) error {
			if s == "" {
				return fmt.Errorf("a MAC address is required")
			}
			return nil
		})
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return "", err
	}
	return mac, nil
}

func runAddMAC(addr, mac string) {
	client := ctlclient.New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := client.AddMAC(ctx, mac)
	if err != nil {
		fmt.Fprintf(os.Stderr, "add-mac failed: %v\n", err)
		os.Exit(1)
	}
	if reply.Added {
		fmt.Printf("%s added to the permit list\n", mac)
	} else {
		fmt.Printf("%s was already permitted\n", mac)
	}
}

func runHearingMap(addr string) {
	client := ctlclient.New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := client.HearingMap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hearing-map failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(reply)
}

func runNetwork(addr string) {
	client := ctlclient.New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := client.Network(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "network failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(reply)
}

func runConsole(addr string) {
	client := ctlclient.New(addr)
	p := tea.NewProgram(tui.New(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console failed: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
