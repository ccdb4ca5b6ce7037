package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/robfig/cron/v3"

	"daybrief/internal/briefing"
	"daybrief/internal/calendar"
	"daybrief/internal/config"
	"daybrief/internal/display"
	appLog "daybrief/internal/log"
	"daybrief/internal/narrative"
	"daybrief/internal/profile"
	"daybrief/internal/speech"
	"daybrief/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	name       string
	once       bool
	daemon     bool
	noSpeak    bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("daybrief starting", "version", version)

	conf := loadConfig(flags.configPath)
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("invalid timezone, using local", "timezone", conf.Timezone, "error", err)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"schedule", conf.Schedule,
		"include_tomorrow", conf.IncludeTomorrow,
		"ics_count", len(conf.ICS),
		"speech", conf.Speech.Enabled && !flags.noSpeak,
		"daemon", flags.daemon,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := profile.NewBoltStore(conf.ProfileDB)
	if flags.name != "" {
		if err := store.SetUserName(ctx, flags.name); err != nil {
			appLog.Error("failed to store name", err)
		} else {
			appLog.Info("user name updated")
		}
	}

	// Ask for a name only when someone can answer.
	var in io.Reader
	if !flags.daemon && isatty.IsTerminal(os.Stdin.Fd()) {
		in = os.Stdin
	}
	if _, err := profile.Resolve(ctx, store, in, os.Stdout); err != nil {
		appLog.Warn("could not resolve user name", "error", err)
	}

	var provider calendar.Provider
	if p, err := calendar.NewICSProviderFromConfig(conf); err != nil {
		appLog.Warn("calendar disabled", "error", err)
	} else {
		provider = p
	}

	svc := briefing.New(briefing.Options{
		Provider:        provider,
		Composer:        narrative.NewComposer(nil),
		Profile:         store,
		Runs:            store,
		Location:        loc,
		IncludeTomorrow: conf.IncludeTomorrow,
	})

	var sink speech.Sink = speech.Nop{}
	if !flags.noSpeak {
		sink = speech.FromConfig(conf.Speech)
	}
	renderer := display.New(os.Stdout, conf.WrapWidth)

	if !flags.daemon {
		svc.Run(ctx, renderer, sink)
		appLog.Info("daybrief exiting")
		return
	}

	if flags.once {
		svc.Run(ctx, renderer, sink)
	}
	if err := runDaemon(ctx, conf, svc, store, renderer, sink); err != nil {
		appLog.Error("daemon stopped", err)
	}
	appLog.Info("daybrief exiting")
}

// runDaemon runs briefings on conf.Schedule and serves the HTTP API until ctx
// is cancelled.
func runDaemon(ctx context.Context, conf *config.Config, svc *briefing.Service, store *profile.BoltStore, r *display.Renderer, sink speech.Sink) error {
	loc, _ := conf.Location()
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.Schedule, func() {
		appLog.Info("scheduled briefing")
		svc.Run(ctx, r, sink)
	}); err != nil {
		return err
	}
	c.Start()
	appLog.Info("scheduler started", "schedule", conf.Schedule)

	err := web.StartServer(ctx, conf, svc, store)

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return err
}

// loadConfig always returns a config. Load errors are logged and defaults
// fill in.
func loadConfig(path string) *config.Config {
	conf, err := config.Load(path)
	switch {
	case err == nil:
	case conf != nil:
		appLog.Warn("config not saved, continuing with defaults", "config_path", path, "error", err)
	default:
		appLog.Error("failed to load config, continuing with defaults", err, "config_path", path)
		conf = config.DefaultConfig()
	}
	return conf
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "daybrief", "config.yaml")
	}
	return "/etc/daybrief/config.yaml"
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.name, "name", "", "Store a new user name before running")
	flag.BoolVar(&cfg.once, "once", false, "With -daemon, also run one briefing at startup")
	flag.BoolVar(&cfg.daemon, "daemon", false, "Run briefings on the configured schedule and serve the HTTP API")
	flag.BoolVar(&cfg.noSpeak, "no-speak", false, "Print the briefing without reading it aloud")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
