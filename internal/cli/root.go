package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "faithgate",
	Short: "faithgate - Faithfulness quality gate for RAG answers",
	Long: `Faithgate checks whether an LLM-generated answer is actually supported
by the evidence it was generated from, instead of asking another LLM
to grade itself.

It splits the answer into claims, scores each claim against every
evidence chunk with an NLI (natural language inference) model, and
aggregates the best entailment per claim into a faithfulness verdict.
Refusals ("I can't answer from the given context") are detected and
scored as correct behavior, not as hallucination.

The verdict is deterministic for a fixed model, explainable down to
the single claim, and costs no extra API quota.`,
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
		fmt.Println("faithgate v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.faithgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.faithgate")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables matching FAITHGATE_*
	viper.SetEnvPrefix("FAITHGATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
