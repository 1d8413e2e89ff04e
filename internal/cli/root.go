package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/unearth/internal/logging"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "unearth",
	Short: "Unearth - misinformation forensics for social posts, media and links",
	Long: `Unearth inspects a post, image, video, audio clip, text or link and
produces a forensic report with a transparent trust score.

The score combines three sub-scores: metadata integrity (30%), physics
match (40%) and source corroboration (30%). Every sub-score carries the
signals and inputs it was computed from.

Identical content is analyzed once; later submissions return the stored
report and its community votes.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("unearth %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.unearth/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default from server.log_format)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("server.log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env, the config file and UNEARTH_* variables, then
// installs the logger
func initConfig() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(home + "/.unearth")
		}
		viper.AddConfigPath(".unearth")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	registerDefaults()

	// UNEARTH_SERVER_ADDR overrides server.addr, and so on
	viper.SetEnvPrefix("UNEARTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	format := viper.GetString("server.log_format")
	logging.Init(logging.LevelFor(verbose, quiet), format)

	if readErr == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
