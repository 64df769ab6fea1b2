// Command steerd is the client-steering daemon: it loads a config file,
// attaches to every hostapd socket found under hostapd_dir, and runs the
// control loops, replication mesh, and RPC surface described in the
// package docs under internal/daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"steerd.dev/steerd/internal/apclient"
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/daemon"
	"steerd.dev/steerd/internal/logging"
)

const defaultConfigPath = "/etc/steerd/steerd.hcl"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		startFlags := flag.NewFlagSet("start", flag.ExitOnError)
		configFile := startFlags.String("config", defaultConfigPath, "configuration file")
		startFlags.StringVar(configFile, "c", defaultConfigPath, "configuration file (short)")
		debug := startFlags.Bool("debug", false, "enable debug logging")
		startFlags.Parse(os.Args[2:])

		if err := runStart(*configFile, *debug); err != nil {
			fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		checkFlags.Parse(os.Args[2:])
		configFile := defaultConfigPath
		if checkFlags.NArg() > 0 {
			configFile = checkFlags.Arg(0)
		}
		if _, err := config.Load(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("config OK")

	case "version":
		fmt.Println("steerd (client-steering daemon)")

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`steerd - Wi-Fi client-steering daemon

Usage:
  steerd <command> [options]

Commands:
  start     Run the daemon in the foreground
            Options: --config (-c) <file>, --debug
  check     Validate a configuration file and exit
  version   Print version information

steerd has no background/daemonize mode of its own; run it under your
service manager of choice (systemd, runit, an init script).
`)
}

func runStart(configFile string, debug bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if debug {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.New(logCfg).WithComponent("steerd")

	pool := apclient.NewPool(cfg.HostapdDir, logger)
	defer pool.Close()

	d, err := daemon.New(cfg, pool.Client, logger)
	if err != nil {
		return fmt.Errorf("build daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("steerd starting", "rpc_addr", cfg.RPCAddr, "hostapd_dir", cfg.HostapdDir)
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon exited: %w", err)
	}
	return nil
}
