package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/models"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the repository registry",
	Long:  `Add, remove, enable/disable, and list the repositories and groups dupeforge scans.`,
}

var (
	repoAddPath      string
	repoAddPriority  string
	repoAddFrequency string
	repoAddTags      []string
	repoAddExclude   []string
)

var repoAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if repoAddPath == "" {
			return fmt.Errorf("--path is required")
		}
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		rc := models.Repository{
			Name:            args[0],
			Path:            repoAddPath,
			Priority:        models.Priority(repoAddPriority),
			ScanFrequency:   models.ScanFrequency(repoAddFrequency),
			Enabled:         true,
			Tags:            repoAddTags,
			ExcludePatterns: repoAddExclude,
		}
		if !rc.Priority.Valid() {
			return fmt.Errorf("invalid --priority %q (want one of critical|high|medium|low)", repoAddPriority)
		}
		if !rc.ScanFrequency.Valid() {
			return fmt.Errorf("invalid --frequency %q (want one of daily|weekly|monthly|on-demand)", repoAddFrequency)
		}
		if err := reg.Put(rc); err != nil {
			return err
		}
		fmt.Printf("Registered %s (%s)\n", rc.Name, rc.Path)
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if err := reg.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a registered repository",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRepoEnabled(args[0], true) },
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a registered repository without unregistering it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRepoEnabled(args[0], false) },
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled repositories and groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		printed := false
		for _, rc := range reg.GetEnabled() {
			printed = true
			last := "never"
			if rc.LastScannedAt != nil {
				last = rc.LastScannedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("  %-24s %-8s %-10s last scanned: %s", rc.Name, rc.Priority, rc.ScanFrequency, last)
			if len(rc.Tags) > 0 {
				fmt.Printf("  tags: %s", strings.Join(rc.Tags, ","))
			}
			fmt.Println()
		}
		groups := reg.Groups()
		if len(groups) > 0 {
			fmt.Println("\nGroups:")
			for _, g := range groups {
				printed = true
				fmt.Printf("  %-24s members: %s\n", g.Name, strings.Join(g.Repositories, ", "))
			}
		}
		if !printed {
			fmt.Println("No enabled repositories or groups. Add one with: dupeforge repo add <name> --path <local-path>")
		}
		return nil
	},
}

func init() {
	repoAddCmd.Flags().StringVar(&repoAddPath, "path", "", "local filesystem path to the repository (required)")
	repoAddCmd.Flags().StringVar(&repoAddPriority, "priority", string(models.PriorityMedium), "scan priority: critical|high|medium|low")
	repoAddCmd.Flags().StringVar(&repoAddFrequency, "frequency", string(models.FrequencyWeekly), "scan frequency: daily|weekly|monthly|on-demand")
	repoAddCmd.Flags().StringSliceVar(&repoAddTags, "tags", nil, "comma-separated tags")
	repoAddCmd.Flags().StringSliceVar(&repoAddExclude, "exclude", nil, "comma-separated glob patterns to exclude from scanning")

	repoCmd.AddCommand(repoAddCmd, repoRemoveCmd, repoEnableCmd, repoDisableCmd, repoListCmd)
}

func loadRegistry() (*registry.Registry, error) {
	cfg, err := loadConfigOnly()
	if err != nil {
		return nil, err
	}
	return registry.Load(cfg.RegistryPath)
}

func setRepoEnabled(name string, enabled bool) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := reg.SetEnabled(name, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("%s is now %s\n", name, state)
	return nil
}
