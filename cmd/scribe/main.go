// Command scribe runs the session ingestion and transcription service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/scribe/app"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/version"
)

const serviceName = "scribe"

func main() {
	configFile := flag.String("config", "", "path to config.yml (searched in standard locations when empty)")
	envFile := flag.String("env", "", "path to a .env file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().Short())
		return
	}
	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	var cfg app.Config
	opts := []config.LoaderOption{}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	a, err := app.New(&cfg)
	if err != nil {
		return err
	}
	return a.Run(context.Background())
}
