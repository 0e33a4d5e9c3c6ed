// Package gotdclient implements the telegram.Client surface on top of
// gotd/td. It owns the MTProto session (one per process, shared by all
// calls), translates the request shapes into raw API calls, and maps RPC
// errors into the typed values the core dispatches on.
package gotdclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

type Config struct {
	APIID   int
	APIHash string
	// SessionString is a Telethon StringSession; gotd imports it natively so
	// credentials from the original tooling keep working.
	SessionString string
	// SessionFile is a gotd session file path, used when no string session
	// is configured.
	SessionFile string
}

// Client is the process-wide MTProto client. Safe for concurrent use; the
// wait controller is the only gate on top of it.
type Client struct {
	inner  *tdclient.Client
	api    *tg.Client
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan error
}

var _ telegram.Client = (*Client)(nil)

func sessionStorage(cfg Config) (session.Storage, error) {
	if s := strings.TrimSpace(cfg.SessionString); s != "" {
		data, err := session.TelethonSession(s)
		if err != nil {
			return nil, fmt.Errorf("gotdclient: decode telethon session: %w", err)
		}
		storage := new(session.StorageMemory)
		loader := session.Loader{Storage: storage}
		if err := loader.Save(context.Background(), data); err != nil {
			return nil, fmt.Errorf("gotdclient: load telethon session: %w", err)
		}
		return storage, nil
	}
	if f := strings.TrimSpace(cfg.SessionFile); f != "" {
		return &session.FileStorage{Path: f}, nil
	}
	return nil, errors.New("gotdclient: telegram.session_string or telegram.session_file is required")
}

// Connect establishes the session and blocks until it is authorized and
// ready, or ctx expires. The connection lives until Close.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIID == 0 || strings.TrimSpace(cfg.APIHash) == "" {
		return nil, errors.New("gotdclient: telegram.api_id and telegram.api_hash are required")
	}
	storage, err := sessionStorage(cfg)
	if err != nil {
		return nil, err
	}

	inner := tdclient.NewClient(cfg.APIID, cfg.APIHash, tdclient.Options{
		SessionStorage: storage,
	})
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		inner:  inner,
		logger: logger,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	ready := make(chan struct{})
	go func() {
		c.done <- inner.Run(runCtx, func(ctx context.Context) error {
			status, err := inner.Auth().Status(ctx)
			if err != nil {
				return err
			}
			if !status.Authorized {
				return errors.New("gotdclient: session is not authorized; generate a session first")
			}
			c.api = inner.API()
			logger.Info("telegram_connected")
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case err := <-c.done:
		cancel()
		return nil, fmt.Errorf("gotdclient: connect: %w", err)
	case <-ready:
		return c, nil
	}
}

// Close shuts down the session and waits for the run loop to exit.
func (c *Client) Close() error {
	c.cancel()
	err := <-c.done
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// mapError translates RPC failures into the typed error surface.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &telegram.FloodWaitError{RetryAfter: wait}
	}
	switch {
	case tgerr.Is(err, "USERNAME_INVALID"):
		return telegram.ErrUsernameInvalid
	case tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "CHANNEL_INVALID", "PEER_ID_INVALID", "CHAT_ID_INVALID", "MSG_ID_INVALID"):
		return telegram.ErrChatNotFound
	case tgerr.Is(err, "CHANNEL_PRIVATE", "CHAT_ADMIN_REQUIRED"):
		return telegram.ErrChannelPrivate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &telegram.UnavailableError{Op: op, Err: err}
	}
}
