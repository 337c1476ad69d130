package main

import (
	"github.com/spf13/cobra"

	"github.com/cesargomez89/cuesplit/internal/config"
)

type serveOptions struct {
	configPath  string
	port        string
	threads     int
	pairThreads int
	format      string
	noCleanup   bool
	logDir      string
	dbPath      string
	tagger      string
}

func newRootCommand() *cobra.Command {
	opts := &serveOptions{}

	rootCmd := &cobra.Command{
		Use:           "cuesplitd",
		Short:         "Split CUE sheet album images into tagged tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	defaults := config.Defaults()
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (TOML), defaults to $CUE_SPLITTER_CONFIG")
	flags.StringVar(&opts.port, "port", defaults.Port, "HTTP port")
	flags.IntVar(&opts.threads, "threads", defaults.Threads, "Number of jobs processed in parallel")
	flags.IntVar(&opts.pairThreads, "pair-threads", defaults.PairThreads, "Number of pairs processed in parallel within a job")
	flags.StringVar(&opts.format, "format", defaults.Format, "Output format: flac, mp3 or aac")
	flags.BoolVar(&opts.noCleanup, "no-cleanup", defaults.NoCleanup, "Keep source CUE and image files after a job")
	flags.StringVar(&opts.logDir, "log-dir", defaults.LogDir, "Directory for job logs")
	flags.StringVar(&opts.dbPath, "db", defaults.DBPath, "SQLite database for job history (empty keeps jobs in memory)")
	flags.StringVar(&opts.tagger, "tagger", defaults.Tagger, "Tag writer: cuetag or native")

	rootCmd.AddCommand(newJobsCommand())
	rootCmd.AddCommand(newSubmitCommand())
	rootCmd.AddCommand(newLogCommand())

	return rootCmd
}

// load builds the configuration from file and environment, then applies
// only the flags set on the command line.
func (o *serveOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(config.Path(o.configPath))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("threads") {
		cfg.Threads = o.threads
	}
	if flags.Changed("pair-threads") {
		cfg.PairThreads = o.pairThreads
	}
	if flags.Changed("format") {
		cfg.Format = o.format
	}
	if flags.Changed("no-cleanup") {
		cfg.NoCleanup = o.noCleanup
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = o.logDir
	}
	if flags.Changed("db") {
		cfg.DBPath = o.dbPath
	}
	if flags.Changed("tagger") {
		cfg.Tagger = o.tagger
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
