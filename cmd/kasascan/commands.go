package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kasaops/kasascan/internal/device"
	"github.com/kasaops/kasascan/internal/discovery"
	"github.com/kasaops/kasascan/internal/inventory"
	"github.com/kasaops/kasascan/internal/logging"
	"github.com/kasaops/kasascan/internal/render"
	"github.com/kasaops/kasascan/internal/ui"
	"github.com/kasaops/kasascan/internal/watch"
)

// Command flags
var (
	scanTimeout   int
	filterName    string
	filterType    string
	probeIP       string
	sortKey       string
	withEnergy    bool
	outputFormat  string
	outputFile    string
	watchInterval int
	plainWatch    bool
	dataDir       string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
}

// applySettingDefaults folds config file values into flag defaults.
// Flags given on the command line still win.
func applySettingDefaults() {
	scanTimeout = settings.Scan.TimeoutSeconds
	sortKey = settings.Scan.Sort
	withEnergy = settings.Scan.Energy
	watchInterval = settings.Watch.IntervalSeconds
	if dataDir == "" {
		dataDir = settings.DataDir
	}
}

// newStore resolves the data directory and opens the inventory store.
func newStore() (*inventory.Store, error) {
	dir := dataDir
	if dir == "" {
		var err error
		dir, err = inventory.DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}
	return inventory.NewStore(dir), nil
}

// newTransport is a variable so tests can point discovery at loopback
// responders instead of the real broadcast domain.
var newTransport = func() *discovery.Transport {
	t := discovery.NewTransport()
	t.Timeout = time.Duration(scanTimeout) * time.Second
	return t
}

// errNoDevices makes an empty round a command failure: scan, baseline,
// and diff exit nonzero when nothing answered. Watch is different; its
// rounds keep running through empty results.
var errNoDevices = errors.New("no devices found")

func printNoDeviceHints() {
	fmt.Println("No devices found.")
	fmt.Println("\nTroubleshooting:")
	fmt.Println("  - Ensure devices are powered and on the same network segment")
	fmt.Println("  - Try increasing --timeout for slow networks")
	fmt.Println("  - Use --ip to probe a known address directly")
}

// scanRound performs one discovery round and returns the device records
// found, optionally enriched with energy telemetry. A device that
// answers discovery but fails its energy read stays in the result,
// marked degraded.
func scanRound(ctx context.Context, energy bool) ([]device.Record, time.Time, error) {
	start := time.Now()

	transport := newTransport()
	var replies []discovery.Reply
	var err error
	if probeIP != "" {
		reply, derr := transport.DiscoverSingle(ctx, probeIP)
		if derr != nil {
			return nil, start, derr
		}
		replies = []discovery.Reply{*reply}
	} else {
		replies, err = transport.Discover(ctx)
		if err != nil {
			return nil, start, err
		}
	}

	records := make([]device.Record, len(replies))
	for i, r := range replies {
		records[i] = device.FromSysInfo(r.Info, r.Addr)
	}

	if energy {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(discovery.DefaultRefreshConcurrency)
		for i := range replies {
			if !replies[i].Info.HasEmeter {
				continue
			}
			i := i
			g.Go(func() error {
				session := discovery.SessionFromReply(&replies[i], 0)
				defer func() { _ = session.Close() }()
				reading, err := session.ReadEnergy(gctx)
				if err != nil {
					logging.Debug("energy read failed: " + err.Error())
					records[i].Degraded = true
					return nil
				}
				records[i].Energy = reading
				return nil
			})
		}
		_ = g.Wait()
	}

	logging.LogRound(len(records), time.Since(start).Milliseconds())
	return records, start, nil
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Kasa devices on the network",
	Long: `Scan for Kasa devices using UDP broadcast discovery.

Probes both discovery ports, collects replies within the timeout
window, and displays every device that answered. Each scan also
updates the device snapshot and appends a row per device to the
scan log.

Exits with status 1 when no devices answered; nothing is recorded
for an empty scan.`,
	Example: `  # Scan with the default 5 second window
  kasascan scan

  # Longer window for slow or congested networks
  kasascan scan --timeout 10

  # Include energy telemetry from metering devices
  kasascan scan --energy

  # Only plugs whose name contains "office", as JSON
  kasascan scan --filter office --type plug --format json

  # Probe a single known address instead of broadcasting
  kasascan scan --ip 10.0.0.5`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Reply collection window in seconds")
	scanCmd.Flags().StringVar(&filterName, "filter", "", "Only devices whose name contains this text")
	scanCmd.Flags().StringVar(&filterType, "type", "", "Only devices whose type contains this text (plug, bulb, ...)")
	scanCmd.Flags().StringVar(&probeIP, "ip", "", "Probe a single IP address instead of broadcasting")
	scanCmd.Flags().StringVar(&sortKey, "sort", "name", "Sort key (name, ip, mac, model, type)")
	scanCmd.Flags().BoolVar(&withEnergy, "energy", false, "Read energy telemetry from metering devices")
	scanCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json, csv)")
	scanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write output to a file instead of stdout")
}

func runScan(cmd *cobra.Command, args []string) error {
	records, ts, err := scanRound(cmd.Context(), withEnergy)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(records) == 0 {
		if outputFormat == "table" {
			printNoDeviceHints()
		}
		return errNoDevices
	}

	// Persist the full round before filtering narrows the view.
	store, err := newStore()
	if err != nil {
		return err
	}
	if err := store.Persist(records, ts); err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	if filterName != "" {
		records = device.FilterName(records, filterName)
	}
	if filterType != "" {
		records = device.FilterType(records, filterType)
	}
	device.Sort(records, sortKey)

	var out string
	switch outputFormat {
	case "json":
		out, err = render.JSON(records, ts)
	case "csv":
		out, err = render.CSV(records, withEnergy)
	case "table":
		out = render.Table(records, withEnergy)
	default:
		return fmt.Errorf("unknown output format: %s (want table, json, or csv)", outputFormat)
	}
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Wrote %d device(s) to %s\n", len(records), outputFile)
		return nil
	}
	fmt.Print(out)
	if outputFormat == "table" {
		fmt.Printf("\n%d device(s) found\n", len(records))
	}
	return nil
}

// resolveOne finds exactly one device by name or IP literal.
func resolveOne(ctx context.Context, identifier string) (*discovery.Session, error) {
	resolver := discovery.NewResolver(newTransport())
	return resolver.Resolve(ctx, identifier)
}

var onCmd = &cobra.Command{
	Use:   "on <name-or-ip>",
	Short: "Turn a device on",
	Long: `Turn a device on by name or IP address.

Names match case-insensitively on any part of the device name. When
several devices match, the command lists them and asks for a more
specific name.`,
	Example: `  kasascan on "Office Sconce"
  kasascan on 10.0.0.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd.Context(), args[0], true)
	},
}

var offCmd = &cobra.Command{
	Use:   "off <name-or-ip>",
	Short: "Turn a device off",
	Example: `  kasascan off "Office Sconce"
  kasascan off 10.0.0.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd.Context(), args[0], false)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <name-or-ip>",
	Short: "Toggle a device's power state",
	Long: `Toggle a device between on and off.

The device's current state is read first and the opposite state is
sent, so a toggle on an already-off device turns it on.`,
	Example: `  kasascan toggle "Bedroom Lamp"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := resolveOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		rec := session.Record()
		switch rec.PowerState {
		case device.PowerOn:
			return setPower(cmd.Context(), session, false)
		case device.PowerOff:
			return setPower(cmd.Context(), session, true)
		default:
			return fmt.Errorf("cannot toggle %s: current power state unknown", session.Name())
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{onCmd, offCmd, toggleCmd, brightnessCmd} {
		c.Flags().IntVar(&scanTimeout, "timeout", 5, "Discovery and control timeout in seconds")
	}
}

func runPower(ctx context.Context, identifier string, on bool) error {
	session, err := resolveOne(ctx, identifier)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	return setPower(ctx, session, on)
}

func setPower(ctx context.Context, session *discovery.Session, on bool) error {
	if err := session.SetPower(ctx, on); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Printf("✓ %s (%s) turned %s\n", session.Name(), session.Host(), state)
	return nil
}

var brightnessCmd = &cobra.Command{
	Use:   "brightness <name-or-ip> <level>",
	Short: "Set a dimmable device's brightness",
	Long: `Set brightness on a dimmer or bulb, from 1 to 100 percent.

Setting brightness also turns the device on, matching how the physical
controls behave.`,
	Example: `  kasascan brightness "Bedroom Lamp" 40`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("brightness must be a number: %q", args[1])
		}

		session, err := resolveOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		if err := session.SetBrightness(cmd.Context(), level); err != nil {
			return err
		}
		fmt.Printf("✓ %s (%s) brightness set to %d%%\n", session.Name(), session.Host(), level)
		return nil
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Save the current device population as the baseline",
	Long: `Scan the network and save the result as the reference baseline.

Later 'kasascan diff' runs compare the live network against this
snapshot to report devices that appeared, disappeared, moved to a new
IP address, or were renamed. Saving a new baseline replaces the old
one.`,
	Example: `  kasascan baseline
  kasascan baseline --timeout 10`,
	RunE: runBaseline,
}

func init() {
	baselineCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Reply collection window in seconds")
	baselineCmd.Flags().BoolVar(&withEnergy, "energy", false, "Include energy telemetry in the baseline")
}

func runBaseline(cmd *cobra.Command, args []string) error {
	records, _, err := scanRound(cmd.Context(), withEnergy)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(records) == 0 {
		// Refuse to save: an empty baseline would report the whole
		// fleet as added on the next diff.
		printNoDeviceHints()
		return errNoDevices
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	if _, err := store.SaveBaseline(records); err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}

	fmt.Printf("✓ Baseline saved: %d device(s) → %s\n", len(records), store.BaselinePath())
	return nil
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the network against the saved baseline",
	Long: `Scan the network and report differences from the saved baseline.

Devices are matched by MAC address, so a device that changed its IP
address or name is reported as changed, not as a removal plus an
addition. A device missing from one scan may simply have failed to
answer; rerun the diff before acting on removals.`,
	Example: `  kasascan diff`,
	RunE:    runDiff,
}

func init() {
	diffCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Reply collection window in seconds")
}

func runDiff(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	baseline, err := store.LoadBaseline()
	if err != nil {
		return err
	}

	current, _, err := scanRound(cmd.Context(), false)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(current) == 0 {
		// An empty round says nothing answered, not that every device
		// left the network; refuse to report the fleet as removed.
		printNoDeviceHints()
		return errNoDevices
	}

	changes := inventory.Diff(baseline.Devices, current)
	if changes.Empty() {
		fmt.Printf("No changes since baseline (%s)\n", baseline.Timestamp.Local().Format(time.RFC1123))
		return nil
	}

	printChanges(changes, baseline.Timestamp)
	return nil
}

func printChanges(c *inventory.Changes, baselineTS time.Time) {
	fmt.Printf("Changes since baseline (%s):\n\n", baselineTS.Local().Format(time.RFC1123))

	for _, r := range c.Added {
		fmt.Printf("  + added    %s  %s  %s\n", r.Name, r.MAC, r.IP)
	}
	for _, r := range c.Removed {
		fmt.Printf("  - removed  %s  %s  last seen at %s\n", r.Name, r.MAC, r.IP)
	}
	for _, ch := range c.IPChanged {
		fmt.Printf("  ~ moved    %s  %s  %s → %s\n", ch.After.Name, ch.After.MAC, ch.Before.IP, ch.After.IP)
	}
	for _, ch := range c.NameChanged {
		fmt.Printf("  ~ renamed  %s  %q → %q\n", ch.After.MAC, ch.Before.Name, ch.After.Name)
	}

	fmt.Printf("\n%d added, %d removed, %d moved, %d renamed\n",
		len(c.Added), len(c.Removed), len(c.IPChanged), len(c.NameChanged))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously scan and display live device state",
	Long: `Repeatedly scan the network and display the results in place.

Each round replaces the previous table; a round in flight when you quit
still completes and is recorded. Every completed round updates the
snapshot and appends to the scan log, and unlike a one-shot scan the
loop keeps running through empty rounds.

In a terminal this runs a live screen (q to quit, e to toggle energy
columns). With --plain, or when stdout is not a terminal, each round is
printed as plain text instead.`,
	Example: `  # Refresh every 5 seconds
  kasascan watch

  # Slower cadence with energy telemetry
  kasascan watch --interval 30 --energy

  # Line output for logging or piping
  kasascan watch --plain > rounds.txt`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 5, "Seconds between rounds")
	watchCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Reply collection window in seconds")
	watchCmd.Flags().BoolVar(&withEnergy, "energy", false, "Read energy telemetry each round")
	watchCmd.Flags().BoolVar(&plainWatch, "plain", false, "Print each round as plain text instead of a live screen")
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}

	interval := time.Duration(watchInterval) * time.Second
	scheduler := &watch.Scheduler{
		Interval: interval,
		Round: func(ctx context.Context) ([]device.Record, error) {
			records, _, err := scanRound(ctx, withEnergy)
			return records, err
		},
		Persist: store.Persist,
	}

	if plainWatch || !ui.IsInteractive() {
		scheduler.Publish = func(records []device.Record, ts time.Time) {
			device.Sort(records, sortKey)
			fmt.Printf("=== %s | %d device(s) ===\n", ts.Local().Format(time.RFC3339), len(records))
			fmt.Print(render.Table(records, withEnergy))
			fmt.Println()
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return scheduler.Run(ctx)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := ui.NewWatchModel(interval, withEnergy, cancel)
	done := make(chan error, 1)

	err = ui.Watch(model, func(send func(tea.Msg)) {
		scheduler.Publish = func(records []device.Record, ts time.Time) {
			device.Sort(records, sortKey)
			send(ui.RoundMsg{Devices: records, Timestamp: ts})
		}
		go func() {
			err := scheduler.Run(ctx)
			if err != nil && ctx.Err() == nil {
				send(ui.ErrMsg{Err: err})
			}
			done <- err
		}()
	})
	// The screen can fail without passing through the quit path, which
	// would leave the context live and the scheduler looping. Stop it
	// unconditionally; a round in flight still finishes and persists
	// before we exit.
	drainScheduler(cancel, done)
	return err
}

// drainScheduler stops the scheduler and waits for it to wind down,
// letting an in-flight round complete and persist.
func drainScheduler(cancel context.CancelFunc, done <-chan error) {
	cancel()
	<-done
}

// signalContext cancels the context on SIGINT or SIGTERM so a plain
// watch loop stops cleanly between rounds.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
