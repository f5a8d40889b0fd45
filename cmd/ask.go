package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/rank"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question over the indexed reports",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ask"); err != nil {
			return err
		}

		e, err := getEngine()
		if err != nil {
			return err
		}

		answer, err := e.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
		if askShowSources {
			printSources(cmd, answer.Sources)
		}
		return nil
	},
}

func printSources(cmd *cobra.Command, sources []model.Candidate) {
	if len(sources) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nSources:")
	for i, c := range sources {
		name := c.SourceName
		if name == "" {
			name = "unknown document"
		}
		if date, ok := rank.ResolveDate(c); ok {
			fmt.Fprintf(out, "  [%d] %s (%s): %s\n", i+1, name, date.Format("2006-01-02"), c.Preview())
		} else {
			fmt.Fprintf(out, "  [%d] %s: %s\n", i+1, name, c.Preview())
		}
	}
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print source passages after the answer")
	rootCmd.AddCommand(askCmd)
}
