// Command closereader serves the close-reading API and offers offline
// helpers for paginating texts and rendering outlines.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/closereader/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "closereader",
	Short: "Close-reading annotation service",
	Long: `closereader paginates source texts, tracks a reader's highlights and
margin notes, gates every second page behind a short reflection and keeps
an essay outline built from the reading.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, keys named like the environment variables)")
	rootCmd.AddCommand(serveCmd, paginateCmd, outlineCmd)
}

// loadViper layers the optional config file over the defaults and the
// environment.
func loadViper() (*viper.Viper, error) {
	v := config.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
