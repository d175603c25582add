package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kasaops/kasascan/internal/cloud"
)

var (
	cloudEndpoint string
	cloudUsername string
)

func init() {
	cloudCmd.PersistentFlags().StringVar(&cloudEndpoint, "endpoint", "", "Cloud endpoint URL (default: try known endpoints)")
	cloudCmd.PersistentFlags().StringVar(&cloudUsername, "username", "", "Cloud account email (prompted if not given)")

	cloudCmd.AddCommand(cloudDevicesCmd)
	rootCmd.AddCommand(cloudCmd)
}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Query the Kasa cloud account",
	Long: `Query the TP-Link cloud account your devices are bound to.

Cloud access is read-only and optional: it lists devices registered to
the account, including ones that are offline or on another network.
All device control stays on the local network. The account password is
prompted interactively and never stored.`,
}

var cloudDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices bound to the cloud account",
	Example: `  kasascan cloud devices
  kasascan cloud devices --username user@example.com`,
	RunE: runCloudDevices,
}

func runCloudDevices(cmd *cobra.Command, args []string) error {
	endpoint := cloudEndpoint
	if endpoint == "" {
		endpoint = settings.Cloud.Endpoint
	}
	username := cloudUsername
	if username == "" {
		username = settings.Cloud.Username
	}
	if username == "" {
		var err error
		username, err = promptLine("Cloud account email: ")
		if err != nil {
			return err
		}
	}

	password, err := promptPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return err
	}

	client := cloud.NewClient(endpoint)
	if err := client.Login(cmd.Context(), username, password); err != nil {
		return err
	}

	devices, err := client.DeviceList(cmd.Context())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No devices bound to this account.")
		return nil
	}

	fmt.Printf("Found %d device(s) bound to %s:\n\n", len(devices), username)
	for i, d := range devices {
		status := "offline"
		if d.Online() {
			status = "online"
		}
		fmt.Printf("%d. %s\n", i+1, d.Alias)
		fmt.Printf("   Model:    %s\n", d.Model)
		fmt.Printf("   MAC:      %s\n", d.DeviceMAC)
		fmt.Printf("   Firmware: %s\n", d.SWVersion)
		fmt.Printf("   Status:   %s\n", status)
		fmt.Println()
	}
	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
