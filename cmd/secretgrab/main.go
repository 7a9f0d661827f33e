package main

import (
	"fmt"
	"os"
	"time"

	"secretgrab/internal/config"
	"secretgrab/internal/logging"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	outDir     string
	timeout    time.Duration
	headless   bool
	saveRaw    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger

	// fsys backs config and output files
	fsys afero.Fs = afero.NewOsFs()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "secretgrab",
	Short: "Capture versioned client secrets from the Spotify web player",
	Long: `secretgrab opens the Spotify web player in an instrumented Chrome, records every
object that receives a "secret" field together with its version, and writes the
deduplicated secrets as secrets.json, secretBytes.json and secretDict.json.

Run without a subcommand to grab.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runGrab,
}

var grabCmd = &cobra.Command{
	Use:   "grab",
	Short: "Launch the browser and capture secrets",
	Args:  cobra.NoArgs,
	RunE:  runGrab,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [captures.json]",
	Short: "Rebuild the output files from a saved capture dump",
	Long: `Runs normalization and output on a captures.json written by "grab --save-raw",
without starting a browser.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFs(fsys, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, loaded)
	cfg = loaded

	logger, err = logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.For(logger, logging.CategoryBoot).Debug("Configuration loaded",
		zap.String("config", configPath),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Bool("save_raw", cfg.Output.SaveRaw),
	)
	return nil
}

// applyFlagOverrides copies explicitly set flags over file and env values.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		c.Output.Dir = outDir
	}
	if flags.Changed("headless") {
		c.Browser.Headless = headless
	}
	if flags.Changed("save-raw") {
		c.Output.SaveRaw = saveRaw
	}
	if verbose {
		c.Logging.Level = "debug"
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "Output directory (overrides output.dir)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the command")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "Run Chrome without a window")
	rootCmd.PersistentFlags().BoolVar(&saveRaw, "save-raw", false, "Also write the raw capture dump (captures.json)")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(grabCmd, summarizeCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
