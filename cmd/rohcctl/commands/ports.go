package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/packetsmith/rohc/internal/cli/prompt"
	"github.com/packetsmith/rohc/internal/config"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Manage the RTP port hint list of a configuration file",
}

var portsAddCmd = &cobra.Command{
	Use:   "add [port]",
	Short: "Add a port to the RTP port hint list",
	Long: `Adds a UDP port to the RTP port hint list. With no argument and
-i/--interactive, prompts for the port via promptui instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPortsAdd,
}

var portsRemoveCmd = &cobra.Command{
	Use:   "remove <port>",
	Short: "Remove a port from the RTP port hint list",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortsRemove,
}

var portsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the RTP port hint list",
	Args:  cobra.NoArgs,
	RunE:  runPortsReset,
}

func init() {
	portsAddCmd.Flags().BoolP("interactive", "i", false, "Prompt for the port interactively")
	portsCmd.AddCommand(portsAddCmd, portsRemoveCmd, portsResetCmd)
}

func configPath() (string, error) {
	if Flags.Config == "" {
		return "", fmt.Errorf("--config is required to manage a configuration file's port list")
	}
	return Flags.Config, nil
}

func runPortsAdd(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	var port uint16
	switch {
	case interactive:
		port, err = prompt.InputPort("RTP port")
		if err != nil {
			return err
		}
	case len(args) == 1:
		v, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		port = uint16(v)
	default:
		return fmt.Errorf("provide a port argument or pass -i/--interactive")
	}

	for _, existing := range cfg.RTPPorts {
		if existing == port {
			cmd.Printf("port %d already present\n", port)
			return nil
		}
	}
	if len(cfg.RTPPorts) >= 15 {
		return fmt.Errorf("RTP port list already holds the maximum of 15 entries")
	}
	cfg.RTPPorts = append(cfg.RTPPorts, port)
	sort.Slice(cfg.RTPPorts, func(i, j int) bool { return cfg.RTPPorts[i] < cfg.RTPPorts[j] })

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	cmd.Printf("added port %d\n", port)
	return nil
}

func runPortsRemove(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	v, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[0], err)
	}
	port := uint16(v)

	kept := cfg.RTPPorts[:0]
	removed := false
	for _, existing := range cfg.RTPPorts {
		if existing == port {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	cfg.RTPPorts = kept

	if !removed {
		cmd.Printf("port %d was not in the list\n", port)
		return nil
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	cmd.Printf("removed port %d\n", port)
	return nil
}

func runPortsReset(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.RTPPorts = nil
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	cmd.Println("RTP port list cleared")
	return nil
}
