package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	githubToken string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "warden-cli",
	Short: "warden-cli is the command-line interface for Schema-Warden.",
	Long: `A CLI for running schema reviews against GitHub pull requests and posting
inline comments without going through the HTTP service.

Configuration is read the same way as the server: environment variables, an
optional .env file and an optional config.yaml in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used to read pull requests (overrides GITHUB_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")
}

// initConfig maps CLI flags onto the environment read by config.LoadConfig. Logs
// go to stderr unless configured otherwise so they never mix with review output.
func initConfig(_ *cobra.Command, _ []string) error {
	if githubToken != "" {
		if err := os.Setenv("GITHUB_TOKEN", githubToken); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv("LOGGING_OUTPUT"); !ok {
		if err := os.Setenv("LOGGING_OUTPUT", "stderr"); err != nil {
			return err
		}
	}
	if verbose {
		if _, ok := os.LookupEnv("LOGGING_LEVEL"); !ok {
			return os.Setenv("LOGGING_LEVEL", "debug")
		}
	}
	return nil
}
