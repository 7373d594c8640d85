package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/app"
	appsync "github.com/nhle/fms-tracker/internal/sync"
)

var (
	dashboardRole    string
	dashboardLogFile string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the terminal dashboard",
	Long: `Open the interactive terminal dashboard.

Roles:
  manager   all actions, including delay checks, the alert log, the CSV report and reset
  planner   create tasks and complete steps
  operator  complete steps`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardRole, "role", app.RoleManager, "manager, planner or operator")
	dashboardCmd.Flags().StringVar(&dashboardLogFile, "log-file", "", "write logs to this file")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if !app.ValidRole(dashboardRole) {
		return fmt.Errorf("unknown role %q", dashboardRole)
	}

	if dashboardLogFile != "" {
		config := zap.NewDevelopmentConfig()
		config.OutputPaths = []string{dashboardLogFile}
		config.ErrorOutputPaths = []string{dashboardLogFile}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
	}

	svc, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	root := app.New(app.Deps{
		Tracker:   svc.tracker,
		Scanner:   svc.scanner,
		Role:      dashboardRole,
		Threshold: svc.scanner.Threshold(),
		Now:       time.Now,
	})
	program := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if interval := cfg.Alerts.ScanIntervalSec; interval > 0 {
		poller := appsync.New(svc.scanner, time.Duration(interval)*time.Second, logger)
		poller.OnResult(func(s appsync.ScanStatus) {
			program.Send(app.ScanStatusMsg(s))
		})
		go func() { _ = poller.Run(ctx) }()
	}

	_, err = program.Run()
	return err
}
