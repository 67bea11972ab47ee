package cmd

import (
	"github.com/urfave/cli/v3"

	"github.com/emilythestrangee/git-forum/backend/internal/logging"
)

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs (debug, info, warn, error)",
	Value:   "info",
	Validator: func(value string) error {
		_, err := logging.ParseLevel(value)
		return err
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var logFormatFlag = &cli.StringFlag{
	Name:    "log-format",
	Usage:   "auto, text or json",
	Value:   "auto",
	Sources: cli.EnvVars("LOG_FORMAT"),
}

var verboseSQLFlag = &cli.BoolFlag{
	Name:    "verbose-sql",
	Usage:   "Log every SQL statement",
	Sources: cli.EnvVars("VERBOSE_SQL"),
}
