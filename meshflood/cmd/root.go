// Package cmd provides the command-line interface for meshflood.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// EnvPrefix prefixes the environment variables that preset flags. The flag
// --monitor-port is preset by MESHFLOOD_MONITOR_PORT.
const EnvPrefix = "MESHFLOOD_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshflood",
	Short: "Meshflood simulates flooding in a broadcast mesh network.",
	Long: `Meshflood simulates flooding in a broadcast mesh network. Nodes ` +
		`hear every transmission within range and relay each packet once ` +
		`until its TTL runs out. Flag defaults can be preset in a .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		return applyEnvDefaults(cmd.Flags())
	},
	SilenceUsage: true,
}

// applyEnvDefaults sets every flag not given on the command line from its
// environment variable, if present.
func applyEnvDefaults(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		err = flags.Set(f.Name, value)
	})

	return err
}

func envName(flagName string) string {
	return EnvPrefix +
		strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
