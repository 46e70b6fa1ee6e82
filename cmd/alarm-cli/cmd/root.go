package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	api "github.com/oshokin/alarm-scheduler/internal/api/http/alarm"
	"github.com/oshokin/alarm-scheduler/internal/client"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from config when specified.
	serverAddress string

	// rootCmd represents the base command for managing alarms over the API.
	rootCmd = &cobra.Command{
		Use:   "alarm-cli",
		Short: "Manage alarms on a running alarm-server.",
		Long: `Command line client for the alarm scheduler daemon.

Creates, lists, activates, deactivates and deletes alarms through the HTTP API.
Server address is loaded from the configuration file unless overridden
with the --server flag.`,
		SilenceUsage: true,
	}

	createCmd = &cobra.Command{
		Use:   "create TITLE SCHEDULED_AT",
		Short: "Create a new alarm.",
		Long: `Creates an alarm with the given title at the given instant.

SCHEDULED_AT accepts RFC 3339 (2026-03-01T10:00:00Z) or a local
"2006-01-02 15:04" timestamp.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduledAt, err := parseInstant(args[1])
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}

			created, err := c.CreateAlarm(cmd.Context(), args[0], scheduledAt)
			if err != nil {
				return err
			}

			fmt.Printf("Created alarm %d: %s at %s\n",
				created.ID, created.Title, created.ScheduledAt.Local().Format(time.RFC3339))

			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all alarms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			alarms, err := c.ListAlarms(cmd.Context())
			if err != nil {
				return err
			}

			printAlarms(alarms.Alarms)

			return nil
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAlarmID(args[0])
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}

			if err := c.DeleteAlarm(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Printf("Deleted alarm %d\n", id)

			return nil
		},
	}

	onCmd = &cobra.Command{
		Use:   "on ID",
		Short: "Activate an alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, args[0], true)
		},
	}

	offCmd = &cobra.Command{
		Use:   "off ID",
		Short: "Deactivate an alarm without deleting it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, args[0], false)
		},
	}
)

// Execute runs the alarm-cli and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "server address (defaults to config value)")

	rootCmd.AddCommand(createCmd, listCmd, deleteCmd, onCmd, offCmd)
}

// newClient resolves the server address and builds an API client.
func newClient() (*client.Client, error) {
	address := serverAddress
	if address == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}

		address = cfg.ServerAddress
	}

	return client.New(address)
}

// toggle flips an alarm's active flag and prints the resulting status.
func toggle(cmd *cobra.Command, rawID string, isActive bool) error {
	id, err := parseAlarmID(rawID)
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	updated, err := c.ToggleAlarm(cmd.Context(), id, isActive)
	if err != nil {
		return err
	}

	fmt.Printf("Alarm %d is now %s\n", updated.ID, updated.Status)

	return nil
}

// parseAlarmID converts a positional argument into an alarm id.
func parseAlarmID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alarm id %q", raw)
	}

	return id, nil
}

// acceptedInstantLayouts lists the timestamp formats the create command accepts.
// Layouts without a zone are interpreted in local time.
var acceptedInstantLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseInstant parses the scheduled instant argument.
func parseInstant(raw string) (time.Time, error) {
	for i, layout := range acceptedInstantLayouts {
		if i == 0 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}

			continue
		}

		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q, want RFC 3339 or \"2006-01-02 15:04\"", raw)
}

// printAlarms renders alarms as an aligned table.
func printAlarms(alarms []api.AlarmResponse) {
	if len(alarms) == 0 {
		fmt.Println("No alarms.")

		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSCHEDULED AT\tSTATUS")

	for _, alarm := range alarms {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			alarm.ID, alarm.Title, alarm.ScheduledAt.Local().Format(time.RFC3339), alarm.Status)
	}

	_ = w.Flush()
}
