package s3_client

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type Options struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	SessionToken       string
	Endpoint           string // e.g. "https://s3.minio.local:9000"
	UsePathStyle       bool   // true for MinIO/on-prem
	InsecureSkipVerify bool
	HTTPClient         awscfg.HTTPClient
	RetryMaxAttempts   int
	RetryMaxBackoff    time.Duration
}

type Option func(*Options)

func WithRegion(r string) Option { return func(o *Options) { o.Region = r } }

func WithStaticCredentials(id, secret, token string) Option {
	return func(o *Options) { o.AccessKeyID, o.SecretAccessKey, o.SessionToken = id, secret, token }
}

func WithEndpoint(endpoint string, pathStyle bool) Option {
	return func(o *Options) { o.Endpoint, o.UsePathStyle = endpoint, pathStyle }
}

func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) { o.InsecureSkipVerify = skip }
}

// WithHTTPClient replaces the SDK transport. A plain *http.Client cannot take
// the AWS_CA_BUNDLE roots; pass an *awshttp.BuildableClient for that.
func WithHTTPClient(h awscfg.HTTPClient) Option { return func(o *Options) { o.HTTPClient = h } }

func WithRetry(maxAttempts int, maxBackoff time.Duration) Option {
	return func(o *Options) { o.RetryMaxAttempts, o.RetryMaxBackoff = maxAttempts, maxBackoff }
}

// NewS3Client builds a client for the live snapshot bucket. Static
// credentials are used when given, otherwise the default AWS chain.
func NewS3Client(ctx context.Context, opts ...Option) (*s3.Client, error) {
	conf := Options{}
	for _, fn := range opts {
		fn(&conf)
	}
	if conf.HTTPClient == nil && conf.InsecureSkipVerify {
		conf.HTTPClient = insecureClient()
	}

	awsCfg, err := loadAWSConfig(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	if conf.RetryMaxAttempts > 0 {
		awsCfg.RetryMaxAttempts = conf.RetryMaxAttempts
		awsCfg.Retryer = func() aws.Retryer {
			var r aws.Retryer = retry.AddWithMaxAttempts(retry.NewStandard(), conf.RetryMaxAttempts)
			if conf.RetryMaxBackoff > 0 {
				r = retry.AddWithMaxBackoffDelay(r, conf.RetryMaxBackoff)
			}
			return r
		}
	}

	var s3Opts []func(*s3.Options)
	if conf.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	if conf.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// insecureClient stays buildable so LoadDefaultConfig can still add a custom
// CA bundle on top.
func insecureClient() *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = &tls.Config{}
		}
		tr.TLSClientConfig.InsecureSkipVerify = true
	})
}

func loadAWSConfig(ctx context.Context, o Options) (aws.Config, error) {
	var lo []func(*awscfg.LoadOptions) error

	if o.Region != "" {
		lo = append(lo, awscfg.WithRegion(o.Region))
	}
	if o.HTTPClient != nil {
		lo = append(lo, awscfg.WithHTTPClient(o.HTTPClient))
	}
	if o.AccessKeyID != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, o.SessionToken))
		lo = append(lo, awscfg.WithCredentialsProvider(creds))
	}
	return awscfg.LoadDefaultConfig(ctx, lo...)
}
