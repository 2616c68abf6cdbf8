package main

import (
	"flag"
	"os"

	"github.com/brettbedarf/minifs"
	"github.com/brettbedarf/minifs/config"
	"github.com/brettbedarf/minifs/internal/util"
)

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		user       string
	)
	flag.StringVar(&configPath, "config", "", "Path to a .yaml, .json or .env config file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.IntVar(&verbose, "verbose", 0,
		"Log verbosity level between 1 (error) and 5 (trace). Overrides the config file. Default is 3 (info).")
	flag.IntVar(&verbose, "v", 0, "--verbose (shorthand)")
	flag.StringVar(&user, "user", "", "User class the session starts as: owner, group or other")
	flag.StringVar(&user, "u", "", "--user (shorthand)")
	flag.Parse()

	// Initialize logger early so config loading can report problems
	if verbose != 0 {
		util.InitializeLogger(util.LevelFromVerbosity(verbose))
	} else {
		util.InitializeLogger(config.DefaultLogLvl)
	}
	logger := util.GetLogger("main")

	override := &config.ConfigOverride{}
	if configPath != "" {
		var err error
		override, err = config.LoadConfigOverrideFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		logger.Debug().Str("config", configPath).Msg("Config file loaded successfully")
	}
	if verbose != 0 {
		override.LogLvl = &verbose
	}
	if user != "" {
		override.DefaultUser = &user
	}
	cfg := config.NewConfig(override)
	util.InitializeLogger(cfg.LogLvl)

	fs, err := minifs.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create filesystem")
	}
	logger.Info().
		Int("disk", cfg.DiskSize).
		Int("block", cfg.BlockSize).
		Int("blocks", cfg.NumBlocks()).
		Str("user", cfg.DefaultUser).
		Msg("Filesystem initialized")

	sh := minifs.NewShell(fs, os.Stdout)
	if err := sh.Run(os.Stdin); err != nil {
		logger.Fatal().Err(err).Msg("Failed to read input")
	}
}
