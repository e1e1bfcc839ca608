package dealerdesk

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealerdesk/dealerdesk.go/pkg/auth"
	"github.com/dealerdesk/dealerdesk.go/pkg/config"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/metrics"
	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/service"
	"github.com/dealerdesk/dealerdesk.go/pkg/session"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Client wires the transport, the session and the token authority for one API.
type Client struct {
	Config    *config.Config
	Transport *transport.Transport
	Auth      *auth.Authority
	Session   *session.Session
	Metrics   *metrics.Metrics
	Logger    logger.Logger

	mock    *mock.Generator
	closers []io.Closer
}

type options struct {
	log        logger.Logger
	registerer prometheus.Registerer
	httpClient *http.Client
	store      session.Store
	onExpired  func(ctx context.Context)
	onDrop     func(path string, drop schema.Drop)
	mock       *mock.Generator
}

type Option func(*options)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithRegisterer registers the client's metrics on reg. Without it the collectors are not
// registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithStore replaces the session store named by the configuration.
func WithStore(s session.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithExpiredHook is called when the session ends involuntarily.
func WithExpiredHook(fn func(ctx context.Context)) Option {
	return func(o *options) {
		o.onExpired = fn
	}
}

// WithDropHook observes list elements discarded by tolerant parsing.
func WithDropHook(fn func(path string, drop schema.Drop)) Option {
	return func(o *options) {
		o.onDrop = fn
	}
}

// WithMock sets the generator behind the dummy operations of services built by the client.
func WithMock(g *mock.Generator) Option {
	return func(o *options) {
		o.mock = g
	}
}

// New validates cfg, opens the session store and restores the stored session.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{Config: cfg, Logger: o.log, mock: o.mock}
	if c.Logger == nil {
		c.Logger = cfg.NewLogger(nil)
	}
	c.Metrics = metrics.New(o.registerer)
	if c.mock == nil {
		c.mock = mock.New()
	}

	store := o.store
	if store == nil {
		var closer io.Closer
		var err error
		if store, closer, err = cfg.OpenStore(); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closer)
	}

	sess, err := session.Open(ctx, store, c.Logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Session = sess

	httpClient := o.httpClient
	if httpClient == nil && cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c.Transport = transport.New(transport.Params{
		BaseURL:    cfg.BaseURL,
		APIPattern: cfg.APIPattern,
		HTTPClient: httpClient,
		Logger:     c.Logger,
		Metrics:    c.Metrics,
		OnDrop:     o.onDrop,
	})

	authOpts := []auth.Option{
		auth.WithPaths(cfg.TokenPath, cfg.RefreshPath, cfg.PermissionsPath),
		auth.WithLogger(c.Logger),
		auth.WithMetrics(c.Metrics),
	}
	if o.onExpired != nil {
		authOpts = append(authOpts, auth.WithExpiredHook(o.onExpired))
	}
	c.Auth = auth.New(c.Transport, sess, authOpts...)
	return c, nil
}

// Login obtains a token pair and loads the permissions of the user's role. A failure to load
// permissions is logged and does not undo the login.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if _, err := c.Auth.Obtain(ctx, auth.Credentials{Username: username, Password: password}); err != nil {
		return err
	}
	if _, err := c.Auth.FetchPermissions(ctx); err != nil {
		c.Logger.Warn("could not load permissions", "error", err)
	}
	return nil
}

// Logout forgets the stored session.
func (c *Client) Logout(ctx context.Context) error {
	c.Logger.Info("signed out")
	return c.Auth.Clear(ctx)
}

// Close releases the session store.
func (c *Client) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// ServiceOptions are the options services built by the client receive.
func (c *Client) ServiceOptions() []service.Option {
	return []service.Option{
		service.WithMock(c.mock),
		service.WithDummyDelay(c.Config.DummyDelay),
		service.WithLogger(c.Logger),
	}
}

// NewService builds the full service of a resource at path whose entities conform to shape.
func NewService[E models.Entity](c *Client, path string, kind models.IdentifierKind, shape schema.Shape) (*service.Paginated[E], error) {
	return service.NewPaginated[E](c.Transport, service.Descriptor{Path: path, Kind: kind, Schema: shape}, c.ServiceOptions()...)
}

// NewChoices builds a choices-only service for path.
func NewChoices(c *Client, path string) (*service.Choices, error) {
	return service.NewChoices(c.Transport, path, c.ServiceOptions()...)
}
