package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"launcher/internal/apps"
	"launcher/internal/config"
	"launcher/internal/fetch"
	"launcher/internal/logx"
	"launcher/internal/notify"
	"launcher/internal/paths"
	"launcher/internal/sources"
)

// env is everything a command needs to act on one apps root.
type env struct {
	cfg     config.Config
	layout  paths.Layout
	logger  *log.Logger
	closer  io.Closer
	client  *fetch.Client
	service *apps.Service

	// sourcesListMigrated is set when opening the env converted a legacy
	// sources list.
	sourcesListMigrated bool
}

func (e *env) Close() error {
	if e == nil || e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

func (e *env) logf(format string, v ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Printf(format, v...)
}

// openEnv resolves the apps root, loads the configuration and wires the
// service. Legacy sources lists are migrated before the registry is read.
func openEnv(cmd *cobra.Command) (*env, error) {
	rootFlag := appsRootDir
	layout, err := paths.Resolve(rootFlag)
	if err != nil {
		return nil, err
	}

	cfgPath := layout.ConfigFile
	if strings.TrimSpace(configFile) != "" {
		cfgPath = configFile
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if rootFlag == "" && cfg.AppsRootDir != "" {
		if layout, err = paths.Resolve(cfg.AppsRootDir); err != nil {
			return nil, err
		}
	}
	if results := cfg.Validate(); config.HasErrors(results) {
		return nil, validationError(results)
	}

	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}

	var mirror io.Writer
	if verbose {
		mirror = cmd.ErrOrStderr()
	}
	logger, closer, err := logx.New(layout, mirror)
	if err != nil {
		return nil, err
	}

	client, err := fetch.New(fetch.Options{
		Proxy:      cfg.Network.Proxy,
		Timeout:    cfg.Timeout(),
		UserAgent:  cfg.Network.UserAgent,
		ProxyLogin: promptProxyLogin(cmd.InOrStdin(), cmd.ErrOrStderr()),
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	registry := sources.NewRegistry(layout, cfg.OfficialSourceURL)
	svc := apps.NewService(layout, registry, client, logger)
	svc.Notifier = notify.NewWriter(cmd.ErrOrStderr())
	svc.Concurrency = cfg.Sync.Concurrency
	svc.Syncer.Concurrency = cfg.Sync.Concurrency

	migrated, err := svc.Migrator.MigrateSourcesList()
	if err != nil {
		logger.Printf("migrate sources list: %v", err)
	}

	return &env{
		cfg:                 cfg,
		layout:              layout,
		logger:              logger,
		closer:              closer,
		client:              client,
		service:             svc,
		sourcesListMigrated: migrated,
	}, nil
}

func validationError(results []config.ValidationResult) error {
	var msgs []string
	for _, r := range results {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// promptProxyLogin asks for proxy credentials on the terminal.
func promptProxyLogin(in io.Reader, out io.Writer) fetch.ProxyLoginFunc {
	reader := bufio.NewReader(in)
	return func(_ context.Context, challenge fetch.ProxyChallenge) (fetch.Credentials, error) {
		fmt.Fprintf(out, "Proxy authentication required for %s\n", challenge.URL)
		fmt.Fprint(out, "Username: ")
		user, err := reader.ReadString('\n')
		if err != nil && user == "" {
			return fetch.Credentials{}, fmt.Errorf("read proxy username: %w", err)
		}
		fmt.Fprint(out, "Password: ")
		pass, err := reader.ReadString('\n')
		if err != nil && pass == "" {
			return fetch.Credentials{}, fmt.Errorf("read proxy password: %w", err)
		}
		return fetch.Credentials{
			Username: strings.TrimSpace(user),
			Password: strings.TrimRight(pass, "\r\n"),
		}, nil
	}
}
