package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/parsing"
)

func newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage the device inventory",
	}
	cmd.AddCommand(
		newDeviceListCmd(),
		newDeviceAddCmd(),
	)
	return cmd
}

func newDeviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List inventoried devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, inventory, err := loadConfigAndInventory()
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tADDRESS\tPORT\tKIND\tCREDENTIAL")
			for _, deviceID := range inventory.DeviceIDs() {
				device, _ := inventory.Get(deviceID)
				port := "-"
				if device.Port > 0 {
					port = fmt.Sprint(device.Port)
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", deviceID, device.Address, port, device.Kind, device.CredentialID)
			}
			return writer.Flush()
		},
	}
}

func newDeviceAddCmd() *cobra.Command {
	var device common.Device
	var kind string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add or replace a device and save the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device.Kind = common.DeviceKind(kind)
			if _, found := parsing.LookupDialect(device.Kind); !found {
				return fmt.Errorf("%w: %q", common.ErrUnsupportedDeviceKind, kind)
			}
			_, inventory, err := loadConfigAndInventory()
			if err != nil {
				return err
			}
			if err := inventory.Add(args[0], device); err != nil {
				return err
			}
			if err := inventory.Save(); err != nil {
				return err
			}
			fmt.Printf("Added %s (%s)\n", args[0], device.Address)
			return nil
		},
	}
	cmd.Flags().StringVar(&device.Address, "address", "", "Device address (required)")
	cmd.Flags().UintVar(&device.Port, "port", 0, "SSH port (default 22)")
	cmd.Flags().StringVar(&kind, "kind", string(common.DeviceKindCisco), "Device kind (cisco, linux)")
	cmd.Flags().StringVar(&device.CredentialID, "credential", "", "Credential ID (required)")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("credential")
	return cmd
}
