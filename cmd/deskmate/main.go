// Command deskmate runs the project workspace assistant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/config"
	"github.com/0xcro3dile/deskmate/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deskmate",
	Short: "deskmate - assistant for your project workspace",
	Long: `deskmate answers questions about the projects a user can access:
tasks, notes, events, contacts, team members and attached files.

It serves an HTTP API for dashboards and offers one-shot and interactive
chat from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, logLevel, err = logging.New(cfg.Logging.Level, cfg.Logging.JSON)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask the assistant a single question",
	Example: `  deskmate ask --user 7f9c... "what is due this week?"
  deskmate ask --user 7f9c... --refresh "summarize the kickoff notes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session (/clear, /quit)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var (
	userID  string
	refresh bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	askCmd.Flags().StringVarP(&userID, "user", "u", "", "User id to answer for (required)")
	askCmd.Flags().BoolVar(&refresh, "refresh", false, "Rebuild the workspace snapshot before answering")
	askCmd.MarkFlagRequired("user")

	chatCmd.Flags().StringVarP(&userID, "user", "u", "", "User id to chat as (required)")
	chatCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
