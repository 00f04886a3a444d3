package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimipsen/grouper/pkg/export"
	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/models"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grouper",
		Short: "Split people into groups from a session file",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newSuggestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// settingsFlags are shared by run and validate
type settingsFlags struct {
	strategy string
	size     int
	partial  bool
	gender   string
	weights  []string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "RANDOM, PREFERENCE_BASED or WEIGHTED (overrides the file)")
	cmd.Flags().IntVar(&f.size, "size", 0, "Target group size (overrides the file)")
	cmd.Flags().BoolVar(&f.partial, "partial", true, "Allow a final smaller group")
	cmd.Flags().StringVar(&f.gender, "gender", "", "Gender mode: mixed, single or ignore")
	cmd.Flags().StringSliceVar(&f.weights, "weights", nil, "Weight ids to balance (__gender__ for gender)")
}

// apply overrides file settings with the flags the user set
func (f *settingsFlags) apply(cmd *cobra.Command, settings models.GroupingSettings) models.GroupingSettings {
	if cmd.Flags().Changed("strategy") {
		settings.Strategy = models.Strategy(strings.ToUpper(f.strategy))
	}
	if cmd.Flags().Changed("size") {
		settings.GroupSize = f.size
	}
	if cmd.Flags().Changed("partial") {
		partial := f.partial
		settings.AllowPartialGroups = &partial
	}
	if cmd.Flags().Changed("gender") {
		settings.GenderMode = models.GenderMode(strings.ToLower(f.gender))
	}
	if cmd.Flags().Changed("weights") {
		settings.WeightIDs = f.weights
	}
	if settings.Strategy == "" {
		settings.Strategy = models.StrategyRandom
	}
	return settings
}

func newRunCmd() *cobra.Command {
	var (
		flags    settingsFlags
		seed     uint64
		locale   string
		xlsxPath string
		output   string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "run [session-file]",
		Short: "Group the people of a YAML or JSON session file",
		Long: `Group the people of a session file and print the groups.

Example: grouper run class.yaml --strategy PREFERENCE_BASED --size 4 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}
			settings := flags.apply(cmd, in.Settings)

			level := "warn"
			if verbose {
				level = "debug"
			}
			opts := []grouping.Option{
				grouping.WithLogger(logging.New(level, cmd.ErrOrStderr())),
				grouping.WithLocale(locale),
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, grouping.WithRand(grouping.NewRand(seed)))
			}

			session := in.Session
			result, err := grouping.New(opts...).CreateGroupsForSession(&session, settings)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := writeXLSX(xlsxPath, *result, session.People); err != nil {
					return err
				}
			}
			return printResult(cmd.OutOrStdout(), output, result, &session)
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for a reproducible grouping")
	cmd.Flags().StringVar(&locale, "locale", grouping.DefaultLocale, "Locale used to order group members")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the groups to this .xlsx file")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log optimizer progress to stderr")

	return cmd
}

func printResult(w io.Writer, output string, result *models.GroupingResult, session *models.Session) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		_, err := fmt.Fprintln(w, renderResult(result, session))
		return err
	}
	return fmt.Errorf("unknown output format %q", output)
}

func writeXLSX(path string, result models.GroupingResult, people []models.Person) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteResultXLSX(f, result, people); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newValidateCmd() *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "validate [session-file]",
		Short: "Check grouping settings against a session without grouping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}
			result := grouping.ValidateSettings(len(in.People), flags.apply(cmd, in.Settings))
			fmt.Fprintln(cmd.OutOrStdout(), renderValidation(result))
			if !result.IsValid {
				return fmt.Errorf("settings are invalid")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [people-count | session-file]",
		Short: "Suggest group sizes for a population",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				in, loadErr := loadInput(args[0])
				if loadErr != nil {
					return loadErr
				}
				n = len(in.People)
			}
			if n < 0 {
				return fmt.Errorf("people count must not be negative")
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSuggestions(n, grouping.SuggestGroupSizes(n)))
			return nil
		},
	}
}
