package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/fleetpulse/pkg/log"
)

// RunFunc is the body of the root command, called after options are loaded,
// completed and validated.
type RunFunc func() error

// App is a cobra command wired to a NamedFlagSetOptions tree.
type App struct {
	name        string
	shortDesc   string
	description string
	envPrefix   string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	noConfig    bool
	args        cobra.PositionalArgs
	commands    []*cobra.Command

	cfgFile string
	cmd     *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithNoConfig drops the --config flag and config file lookup.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithEnvPrefix overrides the environment prefix, which defaults to the upper-cased name.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithDefaultValidArgs rejects positional arguments on the root command.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithCommands attaches subcommands. They inherit every option flag and see
// the same loaded configuration.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.commands = append(a.commands, cmds...) }
}

// NewApp builds the application and its cobra command.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		envPrefix: strings.ToUpper(strings.ReplaceAll(name, "-", "_")),
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:   a.name,
		Short: a.shortDesc,
		Long:  a.description,
		// Errors are printed once by Run.
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	cmd.PersistentPreRunE = a.loadOptions

	if a.runFunc != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error { return a.runFunc() }
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}
	if !a.noConfig {
		addConfigFlag(a.name, fss.FlagSet("global"), &a.cfgFile)
	}
	for _, f := range fss.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.AddCommand(a.commands...)

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	a.cmd = cmd
}

// loadOptions merges config file and environment into the option tree, then
// completes and validates it. It runs before the root command and every subcommand.
func (a *App) loadOptions(cmd *cobra.Command, _ []string) error {
	if a.options == nil {
		return nil
	}

	v := viper.New()
	if !a.noConfig {
		var err error
		if v, err = newViper(a.name, a.envPrefix, a.cfgFile); err != nil {
			return fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process with status 1 on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v %v\n", "Error:", err)
		_ = log.Sync()
		os.Exit(1)
	}
}
