package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gondar-software/domain-manager/internal/certbot"
	"github.com/gondar-software/domain-manager/internal/config"
	"github.com/gondar-software/domain-manager/internal/dns"
	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/nginx"
	"github.com/gondar-software/domain-manager/internal/server"
	"github.com/gondar-software/domain-manager/internal/service"
	"github.com/gondar-software/domain-manager/internal/system"
	"github.com/gondar-software/domain-manager/internal/tasks"
	"github.com/gondar-software/domain-manager/internal/telemetry"
	"github.com/gondar-software/domain-manager/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "domain-manager: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logging.InitLogger(cfg.LoggingConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.CloseLogger()
	logger := logging.GetGlobalLogger()

	logger.Info("Starting %s in %s mode", version.Info(), cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown: %v", err)
		}
	}()

	runner := system.NewExecRunner(cfg.UseSudo)

	var writer nginx.FileWriter = nginx.AtomicWriter{}
	if cfg.UseSudo {
		writer = nginx.NewPrivilegedWriter(runner)
	}
	store := nginx.NewStore(nginx.StoreConfig{
		Path:     cfg.NginxConfigPath,
		Codec:    nginx.NewCodec(cfg.LetsEncryptDir),
		Writer:   writer,
		Process:  nginx.NewProcess(cfg.NginxBinary, runner, system.NewSystemdServiceManager(cfg.NginxService, runner)),
		Validate: cfg.NginxValidate,
	})
	if _, err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load proxy configuration: %w", err)
	}

	dnsClient := dns.NewClient(dns.ClientConfig{
		Provider:           dns.NewGoDaddyProvider(cfg.GoDaddyURL, cfg.GoDaddyAPIKey, cfg.GoDaddyAPISecret, cfg.DNSTimeout),
		Resolver:           dns.NewIPifyResolver(cfg.PublicIPURL, cfg.DNSTimeout),
		PropagationTimeout: cfg.DNSPropagationTimeout,
	})

	issuer := certbot.NewIssuer(certbot.Config{
		Binary:         cfg.CertbotBinary,
		LetsEncryptDir: cfg.LetsEncryptDir,
		Email:          cfg.EmailAddress,
		Policy:         certbot.ReissuePolicy(cfg.CertReissuePolicy),
		RenewBefore:    cfg.CertRenewBefore,
		Timeout:        cfg.CertTimeout,
		ChallengePort:  cfg.ChallengePort,
	}, runner)

	var notifier service.Notifier = service.NopNotifier{}
	if tg := service.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID); tg != nil {
		notifier = tg
		logger.Info("Telegram notifications enabled")
	}

	provisioner := service.NewProvisioner(service.ProvisionerConfig{
		RootDomain:       cfg.RootDomain,
		OperationTimeout: cfg.OperationTimeout,
	}, dnsClient, issuer, store, notifier)

	srv, err := server.NewServer(cfg, server.Dependencies{
		Auth:    service.NewAuthService(cfg.Password, cfg.JWTSecret, cfg.TokenExpireTimeout),
		Domains: provisioner,
		Config:  store,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Init(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	monitor := tasks.NewDNSMonitor(store, dnsClient, notifier, cfg.DNSMonitorInterval)
	monitor.Start()
	defer monitor.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return provisioner.Run(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
