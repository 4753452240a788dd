package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lockwire/lockwire/internal/command"
	"github.com/lockwire/lockwire/internal/config"
	"github.com/lockwire/lockwire/internal/discovery"
	"github.com/lockwire/lockwire/internal/session"
	"github.com/lockwire/lockwire/internal/transport"
)

// Command flags
var (
	bridgeHost  string
	serialPort  string
	scanTimeout int
	forceFlag   bool
	taskType    string
	taskStart   string
	taskEnd     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&bridgeHost, "bridge", "", "BLE bridge address (host:port or ws:// URL)")
	rootCmd.PersistentFlags().StringVar(&serialPort, "serial", "", "UART passthrough port (e.g. /dev/ttyUSB0)")

	rootCmd.AddCommand(bridgesCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(timeSyncCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(monitorCmd)
}

// bridgesCmd discovers BLE bridges on the network
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Scan for lockwire bridges on the network",
	Long: `Scan for BLE-to-WebSocket bridges using mDNS/DNS-SD discovery.

Bridges advertise the "_lockwire._tcp" service type. Discovered bridges can
be used directly via the --bridge flag or stored in the configuration file.`,
	Example: `  # Scan for 10 seconds (default)
  lockwire-cli bridges

  # Quick 3-second scan
  lockwire-cli bridges --timeout 3`,
	RunE: runBridges,
}

func init() {
	bridgesCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runBridges(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for lockwire bridges (timeout: %ds)...\n\n", scanTimeout)

	bridges, err := discovery.ScanForBridges(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(bridges) == 0 {
		fmt.Println("No bridges found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the bridge is powered on and on the same network")
		fmt.Println("  - Firewall must allow mDNS (UDP port 5353)")
		fmt.Println("  - Use --bridge host:port to connect without discovery")
		return nil
	}

	fmt.Printf("Found %d bridge(s):\n\n", len(bridges))
	for i, b := range bridges {
		fmt.Printf("%d. %s\n", i+1, b.Name)
		fmt.Printf("   Endpoint: %s\n", b.Endpoint())
		if v := b.GetMetadata("version"); v != "" {
			fmt.Printf("   Version:  %s\n", v)
		}
		fmt.Println()
	}

	fmt.Println("Use 'lockwire-cli scan --bridge <host:port>' to find key controllers")
	return nil
}

// scanCmd discovers key controllers via the bridge radio
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for key controllers",
	Long: `Scan for key controllers using the bridge's BLE radio.

Each sighting is recorded in the configuration registry so paired devices
show their last-seen time.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan window in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	tp, err := buildTransport(reg)
	if err != nil {
		return err
	}

	eng := session.NewEngine(tp, session.Options{})

	fmt.Printf("Scanning for key controllers (%ds window)...\n\n", scanTimeout)

	done := make(chan error, 1)
	go func() {
		done <- eng.Scan(context.Background(), time.Duration(scanTimeout)*time.Second)
	}()

	count := 0
	for {
		select {
		case ev := <-eng.Events():
			switch e := ev.(type) {
			case session.DeviceFound:
				count++
				name := ""
				if d := reg.GetDevice(e.DeviceID); d != nil && d.Nickname != "" {
					name = " (" + d.Nickname + ")"
				}
				fmt.Printf("%d. %s%s  RSSI %d\n", count, e.DeviceID, name, e.RSSI)
				reg.UpdateDeviceLastSeen(e.DeviceID, e.RSSI)
			case session.ScanCompleted:
				fmt.Printf("\nScan complete: %d device(s) sighted.\n", e.Found)
			}
		case err := <-done:
			if err != nil {
				return err
			}
			if saveErr := reg.Save(); saveErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save registry: %v\n", saveErr)
			}
			return nil
		}
	}
}

// pairCmd stores the pairing secret for a device
var pairCmd = &cobra.Command{
	Use:   "pair <device>",
	Short: "Store the pairing secret for a key controller",
	Long: `Store the pre-shared pairing secret for a device.

The secret seeds the session key for the authentication handshake. It is
prompted without echo and written to the configuration file with user-only
permissions.`,
	Args: cobra.ExactArgs(1),
	RunE: runPair,
}

var pairNickname string

func init() {
	pairCmd.Flags().StringVar(&pairNickname, "nickname", "", "Friendly name for the device")
}

func runPair(cmd *cobra.Command, args []string) error {
	deviceID := args[0]

	fmt.Printf("Pairing secret for %s: ", deviceID)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	if len(secret) == 0 {
		return fmt.Errorf("empty secret")
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	reg.SetDeviceSecret(deviceID, string(secret))
	if pairNickname != "" {
		reg.SetDeviceNickname(deviceID, pairNickname)
	}
	if err := reg.Save(); err != nil {
		return err
	}

	fmt.Printf("Stored. Connect with: lockwire-cli unlock %s <lock-id>\n", deviceID)
	return nil
}

// unlockCmd disengages a lock
var unlockCmd = &cobra.Command{
	Use:   "unlock <device> <lock-id>",
	Short: "Unlock a lock through the key controller",
	Example: `  lockwire-cli unlock AA:BB:CC:DD:EE:FF 1234
  lockwire-cli unlock AA:BB:CC:DD:EE:FF 1234 --force`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args[0], func(ctx context.Context, eng *session.Engine) error {
			resp, err := eng.Unlock(ctx, args[0], args[1], forceFlag)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("device rejected unlock: %s", resp.Err)
			}
			fmt.Printf("Lock %s unlocked.\n", args[1])
			return nil
		})
	},
}

// lockCmd engages a lock
var lockCmd = &cobra.Command{
	Use:   "lock <device> <lock-id>",
	Short: "Lock a lock through the key controller",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args[0], func(ctx context.Context, eng *session.Engine) error {
			resp, err := eng.Lock(ctx, args[0], args[1], forceFlag)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("device rejected lock: %s", resp.Err)
			}
			fmt.Printf("Lock %s locked.\n", args[1])
			return nil
		})
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&forceFlag, "force", false, "Force the operation")
	lockCmd.Flags().BoolVar(&forceFlag, "force", false, "Force the operation")
}

// timeSyncCmd pushes the local clock to the device
var timeSyncCmd = &cobra.Command{
	Use:   "time-sync <device>",
	Short: "Synchronize the device clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args[0], func(ctx context.Context, eng *session.Engine) error {
			now := time.Now()
			resp, err := eng.TimeSync(ctx, args[0], now)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("device rejected time sync: %s", resp.Err)
			}
			fmt.Printf("Clock set to %s.\n", now.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

// infoCmd queries device information
var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Read device information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args[0], func(ctx context.Context, eng *session.Engine) error {
			resp, err := eng.ReadDeviceInfo(ctx, args[0])
			if err != nil {
				return err
			}
			if !resp.Success || resp.DeviceInfo == nil {
				return fmt.Errorf("device info query failed: %s", resp.Err)
			}
			info := resp.DeviceInfo
			fmt.Printf("Firmware:    %s\n", info.Firmware)
			fmt.Printf("Battery:     %d%%\n", info.Battery.Percent())
			fmt.Printf("Lock count:  %d\n", info.LockCount)
			return nil
		})
	},
}

// recordCmd controls unlock-record upload
var recordCmd = &cobra.Command{
	Use:       "record <device> <start|stop|complete>",
	Short:     "Control unlock-record upload",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"start", "stop", "complete"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var action byte
		switch args[1] {
		case "start":
			action = command.SubOpRecordStart
		case "stop":
			action = command.SubOpRecordStop
		case "complete":
			action = command.SubOpRecordComplete
		default:
			return fmt.Errorf("unknown action %q (want start, stop or complete)", args[1])
		}
		return withDevice(args[0], func(ctx context.Context, eng *session.Engine) error {
			resp, err := eng.ControlRecordUpload(ctx, args[0], action)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("device rejected record control: %s", resp.Err)
			}
			fmt.Printf("Record upload: %s.\n", args[1])
			return nil
		})
	},
}

// authorizeCmd pushes a lock authorization list
var authorizeCmd = &cobra.Command{
	Use:   "authorize <device> <lock-id>...",
	Short: "Push a lock authorization list to the key controller",
	Long: `Configure an access task and push the authorized lock-ID list.

The list is compressed into contiguous ranges before transmission, so large
consecutive blocks of IDs cost very little airtime.`,
	Example: `  # Permanent authorization for locks 100-250
  lockwire-cli authorize AA:BB:CC:DD:EE:FF $(seq 100 250)

  # Temporary authorization with a validity window
  lockwire-cli authorize AA:BB:CC:DD:EE:FF 1234 5678 \
      --type temporary --start "2026-09-01 08:00" --end "2026-09-07 18:00"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAuthorize,
}

func init() {
	authorizeCmd.Flags().StringVar(&taskType, "type", "long-term", "Authorization type (long-term, temporary, periodic)")
	authorizeCmd.Flags().StringVar(&taskStart, "start", "", "Validity start for temporary type (2006-01-02 15:04)")
	authorizeCmd.Flags().StringVar(&taskEnd, "end", "", "Validity end for temporary type (2006-01-02 15:04)")
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	deviceID, ids := args[0], args[1:]

	cfg := command.TaskConfig{Op: command.TaskOpAdd}
	switch taskType {
	case "long-term":
		cfg.AuthType = command.AuthTypeLongTerm
	case "temporary":
		cfg.AuthType = command.AuthTypeTemporary
		start, err := time.ParseInLocation("2006-01-02 15:04", taskStart, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := time.ParseInLocation("2006-01-02 15:04", taskEnd, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		cfg.Start, cfg.End = start, end
	case "periodic":
		cfg.AuthType = command.AuthTypePeriodic
	default:
		return fmt.Errorf("unknown authorization type %q", taskType)
	}

	return withDevice(deviceID, func(ctx context.Context, eng *session.Engine) error {
		fmt.Printf("Pushing %d lock ID(s) as %d segment(s)...\n", len(ids), command.SegmentCount(ids))
		if err := eng.PushAuthorization(ctx, deviceID, cfg, ids); err != nil {
			return err
		}
		fmt.Println("Authorization pushed.")
		return nil
	})
}

// buildTransport selects the transport from flags and configuration.
func buildTransport(reg *config.Registry) (transport.Transport, error) {
	bridge := bridgeHost
	serial := serialPort
	if bridge == "" && serial == "" && reg.Preferences != nil {
		bridge = reg.Preferences.Bridge
		serial = reg.Preferences.SerialPort
	}

	switch {
	case bridge != "":
		host := strings.TrimPrefix(bridge, "ws://")
		return transport.NewWSBridge(host), nil
	case serial != "":
		return transport.NewSerialPort(serial), nil
	default:
		return nil, fmt.Errorf("no transport configured: pass --bridge or --serial, or set one in the config file")
	}
}

// newEngine builds an engine for one device using its stored secret.
func newEngine(deviceID string) (*session.Engine, *config.Registry, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, nil, err
	}

	dev := reg.GetDevice(deviceID)
	if dev == nil || dev.SecretKey == "" {
		return nil, nil, fmt.Errorf("no pairing secret for %s: run 'lockwire-cli pair %s' first", deviceID, deviceID)
	}

	tp, err := buildTransport(reg)
	if err != nil {
		return nil, nil, err
	}

	eng := session.NewEngine(tp, session.Options{
		SecretKey:      []byte(dev.SecretKey),
		DefaultTimeout: reg.CommandTimeout(deviceID),
	})
	return eng, reg, nil
}

// withDevice connects, authenticates, runs fn, and disconnects.
func withDevice(deviceID string, fn func(ctx context.Context, eng *session.Engine) error) error {
	eng, _, err := newEngine(deviceID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	fmt.Printf("Connecting to %s...\n", deviceID)
	if err := eng.Connect(ctx, deviceID); err != nil {
		return err
	}
	defer func() {
		if err := eng.Disconnect(deviceID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: disconnect: %v\n", err)
		}
	}()

	return fn(ctx, eng)
}
