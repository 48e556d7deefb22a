package main

import "github.com/urfave/cli/v3"

var (
	configFile  string
	tablesDir   string
	layoutPaths []string
	logLevel    string
	logFormat   string
	debug       bool

	cfg Config
)

func globalFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       configPath(),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "tables",
			Aliases:     []string{"dir"},
			Usage:       "directory containing .db2 / .db2.zst files",
			Sources:     cli.EnvVars("DB2KIT_TABLES_DIR"),
			Destination: &tablesDir,
		},
		&cli.StringSliceFlag{
			Name:        "layout",
			Usage:       "layout definition file or directory (repeatable)",
			Destination: &layoutPaths,
		},
	}, loggingFlags()...)
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
