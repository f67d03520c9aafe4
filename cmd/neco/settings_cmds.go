package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lsoc/neco/pkg/settings"
	"github.com/spf13/cobra"
)

var genSettingsCmd = &cobra.Command{
	Use:   "gen_settings",
	Short: "Write an empty settings document at the default path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(settings.DefaultPath); err == nil {
			return fmt.Errorf("settings document already exists at %s", settings.DefaultPath)
		}

		cfg := settings.Settings{
			UpdateComponents: []settings.UpdateComponent{},
			Certificates:     []settings.CertificateSettings{},
		}

		if err := os.MkdirAll(filepath.Dir(settings.DefaultPath), 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		if err := os.WriteFile(settings.DefaultPath, data, 0o600); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}

		fmt.Println("Wrote", settings.DefaultPath)
		return nil
	},
}

var neutronCredentialsCmd = &cobra.Command{
	Use:   "neutron_credentials",
	Short: "Set the central broker's user identity and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		neutronUser, _ := cmd.Flags().GetString("neutron_user")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		store := settings.New(settings.DefaultPath, nil)
		cfg, err := store.Load()
		if err != nil {
			return err
		}
		cfg.NeutronUser = neutronUser
		if err := store.Save(cfg); err != nil {
			return err
		}
		return store.SetCentralCredentials(username, password)
	},
}

func init() {
	neutronCredentialsCmd.Flags().String("neutron_user", "", "Neutron user identity")
	neutronCredentialsCmd.Flags().String("username", "", "Central broker username")
	neutronCredentialsCmd.Flags().String("password", "", "Central broker password")
	_ = neutronCredentialsCmd.MarkFlagRequired("neutron_user")
	_ = neutronCredentialsCmd.MarkFlagRequired("username")
	_ = neutronCredentialsCmd.MarkFlagRequired("password")
}

var compBackhaulCredentialsCmd = &cobra.Command{
	Use:   "comp_backhaul_credentials",
	Short: "Set the component bus connection details",
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, _ := cmd.Flags().GetString("ip_address")
		port, _ := cmd.Flags().GetInt("port")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		caFile, _ := cmd.Flags().GetString("ca_file")

		store := settings.New(settings.DefaultPath, nil)
		return store.SetComponentBusCredentials(ip, port, username, password, caFile)
	},
}

func init() {
	compBackhaulCredentialsCmd.Flags().String("ip_address", "", "Component broker IP address")
	compBackhaulCredentialsCmd.Flags().Int("port", 0, "Component broker port")
	compBackhaulCredentialsCmd.Flags().String("username", "", "Component broker username")
	compBackhaulCredentialsCmd.Flags().String("password", "", "Component broker password")
	compBackhaulCredentialsCmd.Flags().String("ca_file", "", "Path to the component broker's CA file")
	_ = compBackhaulCredentialsCmd.MarkFlagRequired("ip_address")
	_ = compBackhaulCredentialsCmd.MarkFlagRequired("port")
	_ = compBackhaulCredentialsCmd.MarkFlagRequired("username")
	_ = compBackhaulCredentialsCmd.MarkFlagRequired("password")
	_ = compBackhaulCredentialsCmd.MarkFlagRequired("ca_file")
}
