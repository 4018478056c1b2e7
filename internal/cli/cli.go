package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vk/modforge/internal/app"
)

// EnvPrefix prefixes the environment variables that back every flag, for
// example MODFORGE_DRY_RUN for --dry-run.
const EnvPrefix = "MODFORGE"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Action names what a command asks the application to do.
type Action string

// Actions offered on the command line.
const (
	Build Action = "build"
	Plan  Action = "plan"
	Info  Action = "info"
)

// Runner carries out an action with a validated configuration.
type Runner func(ctx context.Context, action Action, cfg *app.Config) error

// NewRootCommand creates the command tree. Running the root command without a
// subcommand builds the project.
func NewRootCommand(out io.Writer, run Runner) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "modforge [BASE_DIR]",
		Short: "Convention-driven build orchestrator for modular source trees",
		Long: `modforge discovers the module layout of a project from its directory
tree, derives a plan of compile, package and document steps and runs it.

BASE_DIR defaults to the current directory. Every flag can also be set
through an environment variable, e.g. MODFORGE_DRY_RUN=true.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.String("name", "", "Project name; defaults to the base directory name.")
	flags.String("project-version", "", "Project version, e.g. 1.2.3.")
	flags.String("layout", "", "Source layout: 'default' or 'flat'; detected when empty.")
	flags.Int("feature", 0, "Highest release multi-release modules are compiled for (default 17).")
	flags.Int("workers", 0, "Maximum concurrent tasks per parallel step; 0 is unlimited.")
	flags.Bool("dry-run", false, "Log every step without running it.")
	flags.String("jdk-home", "", "JDK whose bin directory provides the tools.")
	flags.StringToString("tool", nil, "Explicit tool executable, e.g. --tool javac=/opt/jdk/bin/javac.")
	flags.Bool("search-path", true, "Look tools up on the PATH.")
	flags.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	action := func(a Action) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			base := "."
			if len(args) > 0 {
				base = args[0]
			}
			cfg, err := configFrom(v, base)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			slog.Debug("Configuration resolved.", "action", a, "base", cfg.BaseDir)
			return run(cmd.Context(), a, cfg)
		}
	}

	root.Args = cobra.MaximumNArgs(1)
	root.RunE = action(Build)
	root.AddCommand(
		&cobra.Command{
			Use:   "build [BASE_DIR]",
			Short: "Compile, package and document every realm",
			Args:  cobra.MaximumNArgs(1),
			RunE:  action(Build),
		},
		&cobra.Command{
			Use:   "plan [BASE_DIR]",
			Short: "Print the build plan without running it",
			Args:  cobra.MaximumNArgs(1),
			RunE:  action(Plan),
		},
		&cobra.Command{
			Use:   "info [BASE_DIR]",
			Short: "Print the detected layout, realms and modules",
			Args:  cobra.MaximumNArgs(1),
			RunE:  action(Info),
		},
	)
	return root
}

func configFrom(v *viper.Viper, base string) (*app.Config, error) {
	tools, err := toolsFrom(v)
	if err != nil {
		return nil, err
	}
	return app.NewConfig(app.Config{
		BaseDir:    base,
		Name:       v.GetString("name"),
		Version:    v.GetString("project-version"),
		Layout:     v.GetString("layout"),
		Feature:    v.GetInt("feature"),
		Workers:    v.GetInt("workers"),
		DryRun:     v.GetBool("dry-run"),
		JDKHome:    v.GetString("jdk-home"),
		Tools:      tools,
		SearchPath: v.GetBool("search-path"),
		LogFormat:  v.GetString("log-format"),
		LogLevel:   v.GetString("log-level"),
	})
}

// toolsFrom reads the tool mappings. Flags arrive as a map; MODFORGE_TOOL
// arrives as a plain "name=path[,name=path]" string viper cannot cast.
func toolsFrom(v *viper.Viper) (map[string]string, error) {
	if tools := v.GetStringMapString("tool"); len(tools) > 0 {
		return tools, nil
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v.GetString("tool")), "["), "]")
	tools := map[string]string{}
	if raw == "" {
		return tools, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid tool mapping %q: must be name=path", pair)
		}
		tools[strings.TrimSpace(name)] = strings.TrimSpace(path)
	}
	return tools, nil
}

// Execute parses args and runs the selected command. Usage errors are
// reported as an *ExitError with code 2.
func Execute(ctx context.Context, args []string, out io.Writer, run Runner) error {
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root := NewRootCommand(out, run)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if isUsageError(err) {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return err
}

// isUsageError recognizes the errors cobra and pflag report for malformed
// command lines.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts at most", "flag needs an argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
