package influx_client

import (
	"context"
	"crypto/tls"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/pkg/errors"
)

type Options struct {
	URL                string
	Token              string
	Org                string
	Bucket             string
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
}

type Option func(*Options)

func WithURL(url string) Option { return func(o *Options) { o.URL = url } }

func WithToken(token string) Option { return func(o *Options) { o.Token = token } }

// WithTarget sets the organization and bucket points are written to.
func WithTarget(org, bucket string) Option {
	return func(o *Options) { o.Org, o.Bucket = org, bucket }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) { o.InsecureSkipVerify = skip }
}

// Client bundles the Influx connection with a blocking writer bound to the
// configured bucket.
type Client struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInfluxClient(opts ...Option) (*Client, error) {
	conf := Options{RequestTimeout: 10 * time.Second}
	for _, fn := range opts {
		fn(&conf)
	}
	if conf.URL == "" || conf.Token == "" || conf.Org == "" || conf.Bucket == "" {
		return nil, cerrors.ErrConfiguration.WithMessage("influx url, token, org and bucket are required")
	}

	clientOpts := influxdb2.DefaultOptions().
		SetHTTPRequestTimeout(uint(conf.RequestTimeout / time.Second))
	if conf.InsecureSkipVerify {
		clientOpts = clientOpts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	c := influxdb2.NewClientWithOptions(conf.URL, conf.Token, clientOpts)
	return &Client{
		client: c,
		writer: c.WriteAPIBlocking(conf.Org, conf.Bucket),
	}, nil
}

// Writer returns the blocking write API for the configured bucket.
func (c *Client) Writer() api.WriteAPIBlocking { return c.writer }

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Ping(ctx)
	if err != nil {
		return errors.Wrap(err, "ping influx")
	}
	if !ok {
		return errors.New("influx server not ready")
	}
	return nil
}

func (c *Client) Close() {
	c.client.Close()
}
