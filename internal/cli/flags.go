package cli

// GlobalFlags apply to every subcommand.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (defaults to CONFIG_PATH or configs/config.yaml)"`
	Verbose bool   `long:"verbose" short:"v" description:"Log at debug level to stderr"`
}

// QueryFlags describe one search request.
type QueryFlags struct {
	City        string   `long:"city" description:"City to search" required:"true"`
	Date        string   `long:"date" description:"Day to search (YYYY-MM-DD)" required:"true"`
	Categories  []string `long:"category" short:"c" description:"Main category (repeatable)" required:"true"`
	NoCache     bool     `long:"no-cache" description:"Skip cache reads"`
	Debug       bool     `long:"debug" description:"Include fetch diagnostics"`
	Concurrency int      `long:"concurrency" description:"Parallel category fetches" default:"0"`
}

// SearchCommand runs one synchronous search and prints the JSON response.
type SearchCommand struct {
	QueryFlags

	globals *GlobalFlags
	env     *environment
}

// StreamCommand runs a progressive search and prints NDJSON lines.
type StreamCommand struct {
	QueryFlags

	globals *GlobalFlags
	env     *environment
}

// CategoriesCommand prints the main categories.
type CategoriesCommand struct {
	env *environment
}
