package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type secretCheck struct {
	description string
	key         string // config path, used in the sample snippet
	value       string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that required credentials are configured",
	Long:  "Prints each required credential masked, and a config.yaml snippet for whatever is missing. Exits non-zero when anything is unset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		checks := []secretCheck{
			{"LlamaCloud API key", "llamacloud.key", cfg.LlamaCloud.Key},
		}
		switch cfg.Synth.Provider {
		case "anthropic":
			checks = append(checks, secretCheck{"Anthropic API key", "anthropic.key", cfg.Anthropic.Key})
		default:
			checks = append(checks, secretCheck{"Ollama API key", "ollama.key", cfg.Ollama.Key})
		}

		out := cmd.OutOrStdout()
		var missing []secretCheck

		// The pipeline can be addressed directly or looked up by index and
		// project name; only the ID is treated as a secret.
		switch {
		case cfg.LlamaCloud.PipelineID != "":
			fmt.Fprintf(out, "OK       LlamaCloud pipeline ID: %s\n", maskSecret(cfg.LlamaCloud.PipelineID))
		case cfg.LlamaCloud.IndexName != "":
			fmt.Fprintf(out, "OK       LlamaCloud index: %s (project %s)\n",
				cfg.LlamaCloud.IndexName, cfg.LlamaCloud.ProjectName)
		default:
			c := secretCheck{"LlamaCloud pipeline ID", "llamacloud.pipeline_id", ""}
			fmt.Fprintf(out, "MISSING  %s (%s)\n", c.description, c.key)
			missing = append(missing, c)
		}

		for _, c := range checks {
			if c.value == "" {
				fmt.Fprintf(out, "MISSING  %s (%s)\n", c.description, c.key)
				missing = append(missing, c)
				continue
			}
			fmt.Fprintf(out, "OK       %s: %s\n", c.description, maskSecret(c.value))
		}

		if len(missing) == 0 {
			fmt.Fprintln(out, "\nAll required credentials are configured.")
			return nil
		}

		snippet, err := missingSnippet(missing)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nAdd the missing values to config.yaml (or set RIM_* environment variables):\n\n%s", snippet)
		return eris.Errorf("%d required credential(s) missing", len(missing))
	},
}

// maskSecret shows only the first and last four characters.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// missingSnippet renders a nested YAML skeleton for the missing config paths.
func missingSnippet(missing []secretCheck) (string, error) {
	tree := map[string]any{}
	for _, c := range missing {
		section, field, found := strings.Cut(c.key, ".")
		if !found {
			tree[c.key] = "<" + c.description + ">"
			continue
		}
		sub, ok := tree[section].(map[string]any)
		if !ok {
			sub = map[string]any{}
			tree[section] = sub
		}
		sub[field] = "<" + c.description + ">"
	}

	b, err := yaml.Marshal(tree)
	if err != nil {
		return "", eris.Wrap(err, "marshal config snippet")
	}
	return string(b), nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
