package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/smartmatch/internal/matching"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the scoring rules in evaluation order",
	Run: func(_ *cobra.Command, _ []string) {
		total := 0.0
		for _, rule := range matching.Describe() {
			fmt.Printf("%-16s -%g\n", rule.Name, rule.MaxPenalty)
			total += rule.MaxPenalty
		}
		fmt.Printf("%-16s -%g\n", "total", total)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
