package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/grindstone/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage grindstone configuration.

Values come from defaults, the config file, GRINDSTONE_* environment
variables and, for timer durations, settings saved from the TUI.

Running bare 'grindstone config' is the same as 'grindstone config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath is --config if given, else the default location.
func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

func configInitRun() error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && configForce {
		ui.Warning("Overwriting existing config file")
	}
	cfg, err := config.WriteDefault(path, configForce)
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	ui.Success("Config file created: %s", path)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, string(data))
	return nil
}

func configShowRun() error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		ui.Info("Config file: %s", path)
	} else {
		path = ""
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	values := configValues(cfg)

	// Saved settings only exist once the database does.
	saved := map[string]string{}
	storePath := cfg.Store.Path
	if dbPath != "" {
		storePath = dbPath
	}
	if _, err := os.Stat(storePath); err == nil {
		if d, err := getDeps(); err == nil {
			saved = configValues(d.cfg)
		} else {
			ui.Warning("Could not read saved settings: %v", err)
		}
	}

	fileValues := readConfigFileValues(path)
	for _, k := range config.Keys {
		val := values[k]
		source := ""
		switch {
		case k == config.KeyStorePath && dbPath != "":
			val, source = dbPath, "(flag)"
		case saved[k] != "" && saved[k] != val:
			val, source = saved[k], "(saved)"
		case envSet(config.EnvVar(k)):
			source = "(env " + config.EnvVar(k) + ")"
		case fileValues[k]:
			source = "(file)"
		default:
			source = "(default)"
		}
		fmt.Fprintf(ui.Out, "  %-24s %-40s %s\n", k, val, source)
	}
	return nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// configValues renders every key of c as text.
func configValues(c *config.Config) map[string]string {
	return map[string]string{
		config.KeyWork:           c.Timer.Work.String(),
		config.KeyShortBreak:     c.Timer.ShortBreak.String(),
		config.KeyLongBreak:      c.Timer.LongBreak.String(),
		config.KeyLongBreakEvery: strconv.Itoa(c.Timer.LongBreakEvery),
		config.KeyAutoAdvance:    strconv.FormatBool(c.Timer.AutoAdvance),
		config.KeyWriteTimeout:   c.Timer.WriteTimeout.String(),
		config.KeyStorePath:      c.Store.Path,
		config.KeySeedCategories: strconv.FormatBool(c.Store.SeedCategories),
		config.KeyWeekStart:      c.Stats.WeekStart,
		config.KeyTimezone:       c.Stats.Timezone,
		config.KeyLogLevel:       c.Log.Level,
		config.KeyLogFile:        c.Log.File,
	}
}

// readConfigFileValues reads the raw YAML file and returns the dotted keys
// present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)
	if path == "" {
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}
	flattenKeys("", parsed, result)
	return result
}

func flattenKeys(prefix string, m map[string]any, out map[string]bool) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenKeys(key, sub, out)
			continue
		}
		out[key] = true
	}
}
