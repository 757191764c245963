package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-as4-reliability/internal/config"
	"github.com/sirosfoundation/go-as4-reliability/internal/storage/mongodb"
	"github.com/sirosfoundation/go-as4-reliability/pkg/msh"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
	"github.com/sirosfoundation/go-as4-reliability/pkg/reliability"
	"github.com/sirosfoundation/go-as4-reliability/pkg/transport"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand creates the serve command
func ServeCommand(global *globalOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the AS4 receiver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := NewLogger(cmd.ErrOrStderr(),
				pick(global.logLevel, cfg.Logging.Level),
				pick(global.logFormat, cfg.Logging.Format))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := newDaemon(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return d.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "as4d.yaml", "Configuration file")

	return cmd
}

// daemon wires the receiving MSH behind the HTTPS endpoint
type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	profile *profile.Profile
	pmodes  pmode.Manager
	msh     *msh.MSH
	server  *transport.HTTPSServer
	closers []func(context.Context) error
}

func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	prof, err := profile.Get(cfg.Profile)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		cfg:     cfg,
		logger:  logger,
		profile: prof,
	}

	if err := d.loadPModes(ctx); err != nil {
		d.close(ctx)
		return nil, err
	}
	if err := d.checkPModes(ctx); err != nil {
		d.close(ctx)
		return nil, err
	}

	mshConfig := msh.MSHConfig{
		PModes:  d.pmodes,
		Profile: prof,
		DuplicateStore: reliability.NewDuplicateStore(
			reliability.WithDisposalWindow(cfg.Reliability.DisposalWindow()),
			reliability.WithStoreLogger(logger),
		),
		IncreaseFactor: cfg.Reliability.IncreaseFactor,
		ReplayReceipts: cfg.Reliability.ReplayReceipts,
		SweepInterval:  cfg.Reliability.SweepInterval,
		MessageHandler: d.deliver,
		ErrorHandler: func(messageID string, err error) {
			logger.Error("message processing failed", "message_id", messageID, "error", err)
		},
		Logger: logger,
	}
	if dir := cfg.Reliability.DumpDir; dir != "" {
		dumper, err := reliability.NewDirectoryDumper(dir, logger)
		if err != nil {
			d.close(ctx)
			return nil, err
		}
		mshConfig.Dumper = dumper
	}

	d.msh, err = msh.NewMSH(mshConfig)
	if err != nil {
		d.close(ctx)
		return nil, err
	}

	httpsConfig := transport.DefaultHTTPSConfig()
	httpsConfig.Path = cfg.Server.Path
	httpsConfig.MaxBodyBytes = cfg.Server.MaxBodyBytes
	if cfg.Server.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			d.close(ctx)
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		httpsConfig.Certificates = []tls.Certificate{cert}
	}
	d.server = transport.NewHTTPSServer(fmt.Sprintf(":%d", cfg.Server.Port), httpsConfig, d.msh)

	return d, nil
}

// loadPModes selects the P-Mode manager and imports the configured files.
// With MongoDB configured the files are upserted into the collection.
func (d *daemon) loadPModes(ctx context.Context) error {
	if m := d.cfg.PModes.MongoDB; m != nil {
		store, err := mongodb.NewStore(ctx, &mongodb.Config{
			URI:        m.URI,
			Database:   m.Database,
			Collection: m.Collection,
		})
		if err != nil {
			return err
		}
		d.closers = append(d.closers, store.Close)
		d.pmodes = store
	} else {
		d.pmodes = pmode.NewMemoryManager()
	}

	for _, path := range d.cfg.PModes.Files {
		pmodes, err := pmode.LoadFile(path)
		if err != nil {
			return err
		}
		for _, pm := range pmodes {
			if err := d.pmodes.CreateOrUpdate(ctx, pm); err != nil {
				return fmt.Errorf("storing pmode %s: %w", pm.ID, err)
			}
		}
		d.logger.Debug("loaded pmode file", "path", path, "pmodes", len(pmodes))
	}
	return nil
}

// checkPModes refuses to serve P-Modes that violate the profile
func (d *daemon) checkPModes(ctx context.Context) error {
	ids, err := d.pmodes.IDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no pmodes configured")
	}

	failed := 0
	for _, id := range ids {
		pm, err := d.pmodes.Get(ctx, id)
		if err != nil {
			return err
		}
		findings := profile.CheckPMode(d.profile.Validator, pm, profile.ModeUserMessage)
		for _, f := range findings.All() {
			if f.IsError() {
				d.logger.Error("pmode violates profile", "pmode", id, "profile", d.profile.ID, "finding", f.String())
			} else {
				d.logger.Warn("pmode finding", "pmode", id, "profile", d.profile.ID, "finding", f.String())
			}
		}
		if findings.ContainsError() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d pmode(s) violate profile %s", ErrInvalidPModes, failed, d.profile.ID)
	}

	d.logger.Info("pmodes ready", "count", len(ids), "profile", d.profile.ID)
	return nil
}

// deliver hands a received user message to the business layer, which for
// the daemon is the log
func (d *daemon) deliver(_ context.Context, in *msh.InboundMessage) error {
	attrs := []any{
		"message_id", in.UserMessage.ID(),
		"pmode", in.PMode.ID,
		"size", len(in.Raw),
	}
	if ci := in.UserMessage.CollaborationInfo; ci != nil {
		attrs = append(attrs, "conversation_id", ci.ConversationId)
	}
	d.logger.Info("message delivered", attrs...)
	return nil
}

// run serves until ctx is done or the listener fails
func (d *daemon) run(ctx context.Context) error {
	if err := d.msh.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if d.cfg.Server.TLS.Enabled {
			errCh <- d.server.Start()
		} else {
			errCh <- d.server.StartInsecure()
		}
	}()
	d.logger.Info("as4d listening",
		"addr", d.server.Addr(),
		"path", d.cfg.Server.Path,
		"tls", d.cfg.Server.TLS.Enabled,
		"duplicate_window", d.cfg.Reliability.DisposalWindow())

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("server shutdown", "error", err)
	}
	if err := d.msh.Stop(); err != nil {
		d.logger.Warn("msh shutdown", "error", err)
	}
	d.close(shutdownCtx)

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

func (d *daemon) close(ctx context.Context) {
	for _, c := range d.closers {
		if err := c(ctx); err != nil {
			d.logger.Warn("closing resource", "error", err)
		}
	}
	d.closers = nil
}
