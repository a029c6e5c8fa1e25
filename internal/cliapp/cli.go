package cliapp

import "flag"

const versionString = "1.0.0"

type cliOptions struct {
	configPath   string
	format       string
	outPath      string
	top          int
	workers      int
	includeTests bool
	serve        bool
	ui           bool
	history      bool
	trend        bool
	progress     bool
	verbose      bool
	version      bool
	args         []string

	// set records which flags were given explicitly so config values are
	// only overridden on request.
	set map[string]bool
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("pyinsight", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.format, "format", "", "Output format: markdown, docs, json, mermaid, tsv")
	fs.StringVar(&opts.outPath, "out", "", "Write output to this file instead of stdout")
	fs.IntVar(&opts.top, "top", 0, "Number of key functions to attach")
	fs.IntVar(&opts.workers, "workers", 0, "Parse worker count")
	fs.BoolVar(&opts.includeTests, "include-tests", false, "Include test files when scanning directories")
	fs.BoolVar(&opts.serve, "serve", false, "Start the HTTP API")
	fs.BoolVar(&opts.ui, "ui", false, "Browse the result in a terminal UI")
	fs.BoolVar(&opts.history, "history", false, "Save a snapshot of this run")
	fs.BoolVar(&opts.trend, "trend", false, "Print the snapshot trend for the target and exit")
	fs.BoolVar(&opts.progress, "progress", false, "Show a parse progress bar")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	opts.args = fs.Args()
	return opts, nil
}
