package cli

import (
	"io"
	"log/slog"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/yanqian/eventradar/internal/bootstrap"
	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/internal/infra/config"
	"github.com/yanqian/eventradar/pkg/logger"
)

// ServiceFactory builds the search service from configuration.
type ServiceFactory func(cfg *config.Config, logger *slog.Logger) (search.Service, func(), error)

type environment struct {
	stdout     io.Writer
	stderr     io.Writer
	newService ServiceFactory
}

type commands struct {
	Search     *SearchCommand
	Stream     *StreamCommand
	Categories *CategoriesCommand
}

func buildParser(env *environment) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "eventctl"
	parser.LongDescription = "Query the event search service from the command line."

	cmds := &commands{
		Search:     &SearchCommand{globals: &globals, env: env},
		Stream:     &StreamCommand{globals: &globals, env: env},
		Categories: &CategoriesCommand{env: env},
	}

	parser.AddCommand("search", "Run a search", "Run one search and print the JSON response.", cmds.Search)
	parser.AddCommand("stream", "Run a progressive search", "Run a progressive search and print one JSON line per message.", cmds.Stream)
	parser.AddCommand("categories", "List main categories", "List the main categories in display order.", cmds.Categories)

	return parser, &globals, cmds
}

// Run parses os.Args and executes the matched subcommand.
func Run() error {
	return RunWithArgs(os.Args[1:], os.Stdout, os.Stderr, defaultServiceFactory)
}

// RunWithArgs executes args against the given output streams.
func RunWithArgs(args []string, stdout, stderr io.Writer, factory ServiceFactory) error {
	env := &environment{stdout: stdout, stderr: stderr, newService: factory}
	parser, _, _ := buildParser(env)

	_, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			_, _ = io.WriteString(stdout, flagsErr.Message+"\n")
			return nil
		}
		return err
	}
	return nil
}

func defaultServiceFactory(cfg *config.Config, logger *slog.Logger) (search.Service, func(), error) {
	return bootstrap.NewSearchService(cfg, nil, logger)
}

// loadConfig honours --config before falling back to the usual lookup.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals.Config != "" {
		if err := os.Setenv("CONFIG_PATH", globals.Config); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func newLogger(globals *GlobalFlags, stderr io.Writer) *slog.Logger {
	level := "warn"
	if globals.Verbose {
		level = "debug"
	}
	return logger.NewWithWriter(stderr, level)
}
