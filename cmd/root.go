package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "Strand mesh routing CLI",
	Long: `Strand is a distance-vector mesh router.
Every node learns a route to every other node from its neighbours, and forwards timestamped messages hop by hop.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Initialize Strand",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "strand",
		Title: "Strand Commands",
	})
}
