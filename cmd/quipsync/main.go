package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quipsync/quipsync/internal/config"
	"github.com/quipsync/quipsync/internal/quipapi"
	"github.com/quipsync/quipsync/internal/sync"
	"github.com/quipsync/quipsync/internal/utils"
	"github.com/quipsync/quipsync/internal/version"
)

var (
	red    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
)

var cancelHandle = sync.NewCancelHandle()

var rootCmd = &cobra.Command{
	Use:     "quipsync",
	Short:   "Mirror a Quip folder tree into a local directory",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindConfig(cmd)
	},
	RunE: runSync,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("source", "s", "", "Quip folder URL or id")
	rootCmd.Flags().StringP("target", "d", "", "Local target directory")
	rootCmd.Flags().StringP("mode", "m", "incremental", "Sync mode: full or incremental")
	rootCmd.Flags().StringP("token", "t", "", "Quip API token (or QUIP_TOKEN env)")
	rootCmd.Flags().String("base-url", "", "API base URL (derived from the source URL when omitted)")
	rootCmd.Flags().Bool("dry-run", false, "Decide what would sync without downloading anything")
	rootCmd.MarkFlagRequired("source")
	rootCmd.MarkFlagRequired("target")
}

func bindConfig(cmd *cobra.Command) error {
	viper.BindPFlag("source", cmd.Flags().Lookup("source"))
	viper.BindPFlag("target", cmd.Flags().Lookup("target"))
	viper.BindPFlag("mode", cmd.Flags().Lookup("mode"))
	viper.BindPFlag("token", cmd.Flags().Lookup("token"))
	viper.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
	viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	viper.SetEnvPrefix("QUIPSYNC")
	viper.AutomaticEnv()

	// the credential is conventionally QUIP_TOKEN, keep honoring it
	if viper.GetString("token") == "" {
		viper.Set("token", os.Getenv("QUIP_TOKEN"))
	}

	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	source := viper.GetString("source")

	folderID, err := config.ExtractFolderID(source)
	if err != nil {
		return err
	}

	mode, err := config.ParseMode(viper.GetString("mode"))
	if err != nil {
		return err
	}

	baseURL := viper.GetString("base_url")
	if baseURL == "" {
		baseURL = config.DeriveBaseURL(source)
	}

	cfg := &config.RunConfig{
		FolderID:  folderID,
		TargetDir: viper.GetString("target"),
		Mode:      mode,
		Token:     viper.GetString("token"),
		BaseURL:   baseURL,
		DryRun:    viper.GetBool("dry_run"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// config is valid; errors past this point are run failures, not usage
	cmd.SilenceUsage = true

	fmt.Println(cyan(version.ShortWithApp()))
	fmt.Printf("  source: %s\n", folderID)
	fmt.Printf("  target: %s\n", cfg.TargetDir)
	fmt.Printf("  mode:   %s\n", cfg.Mode)
	fmt.Printf("  token:  %s\n", utils.MaskSecret(cfg.Token))
	if cfg.DryRun {
		fmt.Println(yellow("  dry run - nothing will be downloaded"))
	}
	fmt.Println()

	client := quipapi.New(cfg.BaseURL, cfg.Token)
	engine := sync.NewEngine(client, cfg, cancelHandle)

	report, runErr := engine.Run(cmd.Context())
	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d item(s) failed to sync", report.Failed)
	}
	return nil
}

func printReport(report *sync.RunReport) {
	fmt.Println()
	fmt.Println(cyan("Sync summary"))
	fmt.Printf("  folders:   %d\n", report.Folders)
	fmt.Printf("  exported:  %s\n", green(report.Exported))
	fmt.Printf("  skipped:   %d\n", report.Skipped)
	if report.Failed > 0 {
		fmt.Printf("  failed:    %s\n", red(report.Failed))
	} else {
		fmt.Printf("  failed:    %d\n", report.Failed)
	}
	fmt.Printf("  elapsed:   %s\n", report.Elapsed.Round(time.Millisecond))

	if len(report.Failures) > 0 {
		fmt.Println()
		fmt.Println(red("Failed items"))
		for _, f := range report.Failures {
			fmt.Printf("  %s  %s\n", f.ID, f.Title)
			fmt.Printf("      path:     %s\n", f.Path)
			fmt.Printf("      reason:   %s\n", f.Reason)
			if f.Attempts > 0 {
				fmt.Printf("      attempts: %d\n", f.Attempts)
			}
		}
	}
}

func main() {
	// best effort, a .env is optional
	godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Warn("stop requested, finishing the current document")
		cancelHandle.Cancel()
		<-sigCh
		slog.Warn("forcing shutdown")
		cancelCtx()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
