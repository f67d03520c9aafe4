package main

import (
	"fmt"

	"github.com/lsoc/neco/pkg/settings"
	"github.com/spf13/cobra"
)

var updateComponentCmd = &cobra.Command{
	Use:   "update_component",
	Short: "Manage the fleet components this agent keeps at version",
}

var updateComponentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new managed component",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		versionFilePath, _ := cmd.Flags().GetString("version_file_path")
		owner, _ := cmd.Flags().GetString("owner")
		ownerGroup, _ := cmd.Flags().GetString("owner_group")
		permissions, _ := cmd.Flags().GetString("permissions")
		containerName, _ := cmd.Flags().GetString("container_name")
		serviceName, _ := cmd.Flags().GetString("service_name")
		restartCommand, _ := cmd.Flags().GetString("restart_command")

		if containerName != "" && serviceName != "" {
			return fmt.Errorf("specify at most one of --container_name or --service_name")
		}

		store := settings.New(settings.DefaultPath, nil)
		return store.AddUpdateComponent(settings.UpdateComponent{
			Name:            name,
			VersionFilePath: versionFilePath,
			Owner:           owner,
			OwnerGroup:      ownerGroup,
			Permissions:     permissions,
			ContainerName:   containerName,
			ServiceName:     serviceName,
			RestartCommand:  restartCommand,
		})
	},
}

var updateComponentRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a managed component",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		store := settings.New(settings.DefaultPath, nil)
		return store.RemoveUpdateComponent(name)
	},
}

func init() {
	updateComponentAddCmd.Flags().String("name", "", "Component name")
	updateComponentAddCmd.Flags().String("version_file_path", "", "Path to the component's on-disk version file")
	updateComponentAddCmd.Flags().String("owner", "", "File owner applied to copied files")
	updateComponentAddCmd.Flags().String("owner_group", "", "File owner group applied to copied files")
	updateComponentAddCmd.Flags().String("permissions", "", "Octal file permissions applied to copied files")
	updateComponentAddCmd.Flags().String("container_name", "", "Docker container name, if this component runs in a container")
	updateComponentAddCmd.Flags().String("service_name", "", "systemd unit name, if this component runs as a service")
	updateComponentAddCmd.Flags().String("restart_command", "", "Shell command run to restart this component after install")
	_ = updateComponentAddCmd.MarkFlagRequired("name")
	_ = updateComponentAddCmd.MarkFlagRequired("version_file_path")
	_ = updateComponentAddCmd.MarkFlagRequired("owner")
	_ = updateComponentAddCmd.MarkFlagRequired("owner_group")
	_ = updateComponentAddCmd.MarkFlagRequired("permissions")
	_ = updateComponentAddCmd.MarkFlagRequired("restart_command")

	updateComponentRemoveCmd.Flags().String("name", "", "Component name")
	_ = updateComponentRemoveCmd.MarkFlagRequired("name")

	updateComponentCmd.AddCommand(updateComponentAddCmd)
	updateComponentCmd.AddCommand(updateComponentRemoveCmd)
}
