package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/report"
)

var checkDelaysCmd = &cobra.Command{
	Use:   "check-delays",
	Short: "Send alerts for steps past the delay threshold",
	Long: `Run one delay scan: every unfinished step more than
alerts.threshold_hours past its planned date, and not alerted before, gets
one alert through the configured notifier. Suitable for cron.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		sent, err := svc.scanner.Scan(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "%d alert(s) sent\n", sent)
		if err != nil {
			logger.Error("delay check incomplete", zap.Error(err))
			return err
		}
		return nil
	},
}

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export every task and step as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		svc, err := openServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		w := cmd.OutOrStdout()
		if reportOutput != "-" {
			f, err := os.Create(reportOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", reportOutput, err)
			}
			defer func() {
				if cerr := f.Close(); err == nil && cerr != nil {
					err = cerr
				}
			}()
			w = f
		}

		if err := report.Export(cmd.Context(), svc.tracker, w); err != nil {
			return err
		}
		if reportOutput != "-" {
			logger.Info("report written", zap.String("path", reportOutput))
		}
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every task, step, file and alert log entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !resetYes && !confirm(cmd, "Delete ALL FMS data? [y/N] ") {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}

		svc, err := openServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.tracker.ResetAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "FMS Initialized Successfully")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", report.FileName, `output file, "-" for stdout`)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	configCmd.AddCommand(configInitCmd)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
