package tsdb_exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

// Sink receives every live snapshot.
type Sink interface {
	Name() string
	Export(ctx context.Context, snap LiveSnapshot) error
}

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the live snapshot as a single JSON object, overwriting the
// previous one.
type S3Sink struct {
	Client ObjectPutter
	Bucket string
	Key    string
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Export(ctx context.Context, snap LiveSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal live snapshot")
	}
	key := s.Key
	if key == "" {
		key = constants.ExporterDefaultS3Key
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return errors.Wrapf(err, "put s3://%s/%s", s.Bucket, key)
}

type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per sensor reading, tagged by node and device.
type InfluxSink struct {
	Writer      PointWriter
	Measurement string
}

func (s *InfluxSink) Name() string { return "influx" }

func (s *InfluxSink) Export(ctx context.Context, snap LiveSnapshot) error {
	points := Points(snap, s.Measurement)
	if len(points) == 0 {
		return nil
	}
	return errors.Wrap(s.Writer.WritePoint(ctx, points...), "write influx points")
}

// Points converts the sensor readings of snap into Influx points. Sensors
// without a value are skipped.
func Points(snap LiveSnapshot, measurement string) []*write.Point {
	if measurement == "" {
		measurement = constants.InfluxDefaultMeasurement
	}
	ts := snap.TakenAt()
	if ts.IsZero() {
		ts = time.Now()
	}
	var points []*write.Point
	for _, r := range snap.Rows() {
		if r.Value == nil {
			continue
		}
		points = append(points, influxdb2.NewPoint(measurement,
			map[string]string{
				"node_id":   r.NodeID,
				"device_id": r.DeviceID,
				"pin":       r.Pin,
			},
			map[string]interface{}{
				"value": *r.Value,
				"name":  r.DeviceName,
			},
			ts,
		))
	}
	return points
}

type SnapshotPublisher interface {
	PublishSnapshot(nodeID string, data any)
}

// FeedSink pushes each node's snapshot to the live feed.
type FeedSink struct {
	Publisher SnapshotPublisher
}

func (s *FeedSink) Name() string { return "feed" }

func (s *FeedSink) Export(_ context.Context, snap LiveSnapshot) error {
	for _, id := range snap.nodeIDs() {
		s.Publisher.PublishSnapshot(id, snap.Nodes[id])
	}
	return nil
}

// BreakerSink stops calling a failing remote sink for a while once it has
// failed enough times in a row.
type BreakerSink struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSink(sink Sink, fails uint32, open time.Duration) *BreakerSink {
	if fails == 0 {
		fails = constants.ExporterDefaultBreakerFailures
	}
	if open <= 0 {
		open = constants.ExporterDefaultBreakerOpen
	}
	return &BreakerSink{
		sink: sink,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    sink.Name(),
			Timeout: open,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
		}),
	}
}

func (b *BreakerSink) Name() string { return b.sink.Name() }

func (b *BreakerSink) State() gobreaker.State { return b.cb.State() }

func (b *BreakerSink) Export(ctx context.Context, snap LiveSnapshot) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.sink.Export(ctx, snap)
	})
	return err
}
