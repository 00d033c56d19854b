package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aretw0/sprintboard"
	"github.com/aretw0/sprintboard/internal/settings"
	"github.com/aretw0/sprintboard/pkg/core"
)

var configureSet []string

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or edit the settings file",
	Long: `Ask for the settings the selected backend needs and save them.
With --set the settings are changed without prompting, e.g.
  sprintboard configure --set backend=Jira --set project=WEB`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, path := loadSettings()
		registry := sprintboard.DefaultRegistry(nil, nil)

		if len(configureSet) > 0 {
			if err := applyAssignments(&s, configureSet); err != nil {
				fatal("Invalid setting", err)
			}
		} else if err := runSettingsForm(registry, &s); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				printWarning("Aborted, nothing saved")
				return
			}
			fatal("Settings form failed", err)
		}

		backend, err := registry.Lookup(s.Backend)
		if err != nil {
			fatal("Invalid setting", err)
		}
		if err := core.ValidateSettings(backend.Name(), backend.DescribeSettings(), s); err != nil {
			printWarning("Settings saved but incomplete: %v", err)
		}

		if err := settings.Save(path, s); err != nil {
			fatal("Failed to save settings", err)
		}
		printSuccess("Settings saved to %s", styleAccent.Render(path))
	},
}

func runSettingsForm(registry *core.Registry, s *core.Settings) error {
	backendName := s.Backend
	err := huh.NewSelect[string]().
		Title("Backend").
		Options(huh.NewOptions(registry.Names()...)...).
		Value(&backendName).
		Run()
	if err != nil {
		return err
	}
	backend, err := registry.Lookup(backendName)
	if err != nil {
		return err
	}
	s.Backend = backend.Name()

	fields := backend.DescribeSettings()
	fields = append(fields,
		core.SettingField{
			Key:         "target_folder",
			Label:       "Target folder",
			Description: "Folder inside the vault that holds the board",
		},
		core.SettingField{
			Key:         "board_file",
			Label:       "Board file",
			Description: "Blank derives the name from project and team",
		},
	)

	values := make([]string, len(fields))
	inputs := make([]huh.Field, 0, len(fields)+1)
	for i, f := range fields {
		values[i] = s.Get(f.Key)
		if values[i] == "" {
			values[i] = f.Default
		}
		input := huh.NewInput().
			Title(f.Label).
			Description(f.Description).
			Placeholder(f.Placeholder).
			Value(&values[i])
		if f.Secret {
			input = input.EchoMode(huh.EchoModePassword)
		}
		if f.Required {
			label := f.Label
			input = input.Validate(func(v string) error {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("%s is required", label)
				}
				return nil
			})
		}
		inputs = append(inputs, input)
	}
	commit := s.Commit
	inputs = append(inputs, huh.NewConfirm().
		Title("Commit the board to git after each sync?").
		Value(&commit))

	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return err
	}

	for i, f := range fields {
		if err := s.Set(f.Key, strings.TrimSpace(values[i])); err != nil {
			return err
		}
	}
	s.Commit = commit
	return nil
}

// applyAssignments applies "key=value" pairs to the settings.
func applyAssignments(s *core.Settings, pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", pair)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "commit":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			s.Commit = b
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("timeout: %w", err)
			}
			s.Timeout = d
		case "status_map":
			rule, err := parseRule(value)
			if err != nil {
				return err
			}
			s.StatusMap = append(s.StatusMap, rule)
		default:
			if err := s.Set(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseRule reads "pattern:column", the --set form of a status_map rule.
func parseRule(value string) (core.StatusRule, error) {
	match, column, ok := strings.Cut(value, ":")
	if !ok || strings.TrimSpace(match) == "" || strings.TrimSpace(column) == "" {
		return core.StatusRule{}, fmt.Errorf("status_map: expected pattern:column, got %q", value)
	}
	return core.StatusRule{Match: strings.TrimSpace(match), Column: strings.TrimSpace(column)}, nil
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().StringArrayVar(&configureSet, "set", nil, "Set key=value without prompting (repeatable; status_map=pattern:column appends a rule)")
}
