package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "halyardctl",
	Short: "Run and administer the Halyard site backend",
	Long: `halyardctl runs the Halyard API server and provides the administrative
commands that go with it: schema migrations, configuration inspection, news
ingestion, user roles and blog content checks.

A .env file in the working directory is loaded before any command runs.
Variables already present in the environment take precedence.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env-file")
		loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before running")
}

// loadEnvFile loads name if it exists; a missing file is not an error
func loadEnvFile(name string) {
	if name == "" {
		return
	}
	if _, err := os.Stat(name); err != nil {
		return
	}
	if err := godotenv.Load(name); err != nil {
		logrus.WithError(err).WithField("file", name).Warn("unable to load env file")
	}
}

// newLogger builds the process logger: JSON in production, text otherwise
func newLogger(level string, production bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
