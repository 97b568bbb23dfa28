package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	calibrationapp "channel-calibration/internal/calibration/application"
	calibrationinterfaces "channel-calibration/internal/calibration/interfaces"
)

func rootCommand(app *cliApp) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "calibration",
		Short:         "Load irrigation channel calibration curves from Excel workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		loadMatrixCommand(app),
		loadFlatCommand(app),
		clearCommand(app),
		showCommand(app),
	)
	return rootCmd
}

func loadMatrixCommand(app *cliApp) *cobra.Command {
	var (
		file       string
		clearFirst bool
		report     string
	)
	cmd := &cobra.Command{
		Use:   "load-matrix",
		Short: "Load a multi-sheet workbook with base height rows and offset columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			if file == "" {
				file = app.cfg.Workbook
			}
			summary, err := app.service.RunMatrix(cmd.Context(), file, calibrationapp.RunOptions{Clear: clearFirst})
			return app.finishRun(cmd, summary, report, err)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "workbook path (default from CALIBRATION_WORKBOOK)")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete every stored point before loading")
	cmd.Flags().StringVar(&report, "report", "", "write a run report (.xlsx or .pdf)")
	return cmd
}

func loadFlatCommand(app *cliApp) *cobra.Command {
	var (
		file       string
		clearFirst bool
		channel    string
		report     string
	)
	cmd := &cobra.Command{
		Use:   "load-flat",
		Short: "Load height/value sheets into one channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			if file == "" {
				file = app.cfg.FlatWorkbook
			}
			if channel == "" {
				channel = app.cfg.DefaultChannel
			}
			opts := calibrationapp.RunOptions{Clear: clearFirst, DefaultChannel: channel}
			summary, err := app.service.RunFlat(cmd.Context(), file, opts)
			return app.finishRun(cmd, summary, report, err)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "workbook path (default from CALIBRATION_FLAT_WORKBOOK)")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete every stored point before loading")
	cmd.Flags().StringVar(&channel, "channel", "", "channel name fragment (default from CALIBRATION_DEFAULT_CHANNEL)")
	cmd.Flags().StringVar(&report, "report", "", "write a run report (.xlsx or .pdf)")
	return cmd
}

func clearCommand(app *cliApp) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored calibration points",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			if channel == "" {
				_, err := app.service.ClearAll(cmd.Context())
				return err
			}
			_, _, err := app.service.ClearChannel(cmd.Context(), channel)
			return err
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "only clear the channel matching this name fragment")
	return cmd
}

func showCommand(app *cliApp) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored calibration curve of a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if channel == "" {
				return errors.New("--channel is required")
			}
			if err := app.setup(); err != nil {
				return err
			}
			found, points, err := app.service.Curve(cmd.Context(), channel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %d points\n", found.Name, found.ID, len(points))
			for _, point := range points {
				fmt.Fprintf(out, "%10.2f\t%.4f\n", point.Height, point.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel name fragment")
	return cmd
}

func (a *cliApp) finishRun(cmd *cobra.Command, summary *calibrationapp.RunSummary, report string, runErr error) error {
	calibrationinterfaces.LogSummary(a.logger, summary)
	a.pushMetrics(cmd.Context())
	if runErr != nil {
		return runErr
	}
	if report == "" {
		return nil
	}
	data, err := calibrationinterfaces.BuildRunReport(report, summary, calibrationinterfaces.WithPDFFont(a.cfg.ReportFont))
	if err != nil {
		return err
	}
	if err := os.WriteFile(report, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.logger.Printf("report written: path=%s bytes=%d", report, len(data))
	return nil
}
