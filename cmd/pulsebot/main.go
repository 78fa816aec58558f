// Command pulsebot runs the tracker progress-survey chat service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectpulse/pulsebot/internal/access"
	"github.com/projectpulse/pulsebot/internal/chat"
	"github.com/projectpulse/pulsebot/internal/health"
	"github.com/projectpulse/pulsebot/internal/messagebus"
	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/internal/router"
	"github.com/projectpulse/pulsebot/internal/session"
	"github.com/projectpulse/pulsebot/internal/survey"
	"github.com/projectpulse/pulsebot/internal/timeline"
	"github.com/projectpulse/pulsebot/internal/tracker"
	"github.com/projectpulse/pulsebot/pkg/config"
)

const version = "1.0.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "pulsebot",
		Short:   "Chat bot reporting project timelines and collecting progress surveys",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (optional, env vars apply on top)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			return serve(configPath)
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the pulsebot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pulsebot %s\n", version)
		},
	}
	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		// The only fatal error class: refuse to start without credentials.
		return err
	}

	m := metrics.NewMetrics()

	store, err := survey.NewStore(survey.Options{
		Backend:   cfg.Store.Backend,
		DataDir:   cfg.Store.DataDir,
		Path:      cfg.Store.Path,
		DSN:       cfg.Store.DSN,
		RedisAddr: cfg.Store.RedisAddr,
		Metrics:   m,
	})
	if err != nil {
		return fmt.Errorf("failed to open survey store: %w", err)
	}
	defer store.Close()
	log.Printf("survey store backend: %s", cfg.Store.Backend)

	trackerClient := tracker.NewJiraClient(cfg.Tracker.URL, cfg.Tracker.Username, cfg.Tracker.APIToken,
		tracker.WithMetrics(m))
	aggregator := timeline.NewAggregator(trackerClient, m)
	guard := access.NewGuard(cfg.Access.AllowedUserIDs)
	sessions := session.NewManager(func() { m.ActiveSessions.Inc() })

	var bus messagebus.Bus
	switch cfg.Bus.Backend {
	case "nats":
		bus, err = messagebus.NewNatsBus(messagebus.NatsConfig{URL: cfg.Bus.URL})
		if err != nil {
			return fmt.Errorf("failed to connect message bus: %w", err)
		}
	default:
		bus = messagebus.NewMemoryBus()
	}
	defer bus.Close()
	log.Printf("message bus backend: %s", cfg.Bus.Backend)

	transport := chat.NewTelegram(cfg.Telegram.Token,
		chat.WithPollTimeout(time.Duration(cfg.Telegram.PollTimeoutSecs)*time.Second))

	rtr := router.New(guard, sessions, aggregator, store, trackerClient, messagebus.NewSender(bus), m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.SubscribeInbound(func(ev *chat.Event) {
		m.BusPublished.WithLabelValues("inbound").Inc()
		rtr.HandleEvent(ctx, ev)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to inbound events: %w", err)
	}
	if err := bus.SubscribeOutbound(func(msg *chat.Outbound) {
		m.BusPublished.WithLabelValues("outbound").Inc()
		if err := transport.Send(ctx, msg); err != nil {
			log.Printf("failed to send message %s: %v", msg.ID, err)
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to outbound messages: %w", err)
	}

	healthSrv := health.NewServer(cfg.Server.ListenAddr, map[string]health.ReadinessCheck{
		"store": func(ctx context.Context) error {
			_, err := store.Load(ctx, "PULSEBOT-READYZ")
			return err
		},
		"tracker": func(ctx context.Context) error {
			_, err := trackerClient.ListProjects(ctx)
			return err
		},
	})
	go func() {
		if err := healthSrv.Start(ctx); err != nil {
			log.Printf("health server stopped: %v", err)
		}
	}()

	log.Printf("pulsebot %s started, polling for updates", version)
	err = transport.Poll(ctx, func(ev *chat.Event) {
		if err := bus.PublishInbound(ctx, ev); err != nil {
			log.Printf("failed to publish inbound event %s: %v", ev.ID, err)
		}
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("update polling failed: %w", err)
	}

	log.Printf("shutting down")
	return nil
}
