package tsdb_exporter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(log.Nop())

	a := node.New("A001",
		node.WithLogger(log.Nop()),
		node.WithSamplerFactory(func(_ string, cfg node.SensorConfig) device.Sampler {
			if cfg.ID == "T1" {
				return device.NewSequenceSampler(21.5)
			}
			return device.NewSequenceSampler(60)
		}),
	)
	require.NoError(t, a.Provision(node.Config{
		ID: "A001",
		Sensors: []node.SensorConfig{
			{ID: "T1", Name: "Temp Sensor", Type: "analog"},
			{ID: "H1", Name: "Humidity Sensor", Type: "analog"},
		},
		Actuators: []node.ActuatorConfig{{ID: "FAN1", Name: "Fan", Type: "digital"}},
	}))
	reg.Put(a)
	reg.Put(node.New("B001", node.WithLogger(log.Nop())))
	return reg
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	name  string
	err   error
	calls int
	last  LiveSnapshot
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Export(_ context.Context, snap LiveSnapshot) error {
	r.calls++
	r.last = snap
	return r.err
}

func TestExporter_LiveFile(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "out", "live_data.json")
	c := &clock{now: time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)}
	e := NewExporter(newRegistry(t),
		WithLogger(log.Nop()),
		WithPaths(live, ""),
		WithClock(c.Now),
	)

	e.Export(context.Background())

	data, err := os.ReadFile(live)
	require.NoError(t, err)
	_, err = os.Stat(live + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var got struct {
		Timestamp string `json:"timestamp"`
		Nodes     map[string]struct {
			Sensors   []map[string]any `json:"sensors"`
			Actuators []map[string]any `json:"actuators"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2024-02-10 09:30:00", got.Timestamp)
	require.Contains(t, got.Nodes, "A001")
	require.Contains(t, got.Nodes, "B001")

	sensors := got.Nodes["A001"].Sensors
	require.Len(t, sensors, 2)
	assert.Equal(t, "H1", sensors[0]["id"])
	assert.Equal(t, "T1", sensors[1]["id"])
	assert.Equal(t, 21.5, sensors[1]["val"])
	assert.Equal(t, "GPIO0(ADC)", sensors[1]["pin"])

	acts := got.Nodes["A001"].Actuators
	require.Len(t, acts, 1)
	assert.Equal(t, "FAN1", acts[0]["id"])
	assert.Equal(t, device.InitialActuatorState, acts[0]["state"])
}

func TestExporter_HistoryCadence(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "smartfarm_tsdb.csv")
	c := &clock{now: time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)}
	e := NewExporter(newRegistry(t),
		WithLogger(log.Nop()),
		WithPaths("", csvPath),
		WithIntervals(2*time.Second, time.Minute),
		WithClock(c.Now),
	)

	e.Export(context.Background())
	_, err := os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err), "no history on the first export")

	c.Advance(30 * time.Second)
	e.Export(context.Background())
	_, err = os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))

	c.Advance(30 * time.Second)
	e.Export(context.Background())
	c.Advance(time.Minute)
	e.Export(context.Background())

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "timestamp,node_id,device_id,device_name,value,pin", lines[0])
	assert.Equal(t, "2024-02-10 09:31:00,A001,H1,Humidity Sensor,60,GPIO1(ADC)", lines[1])
	assert.Equal(t, "2024-02-10 09:31:00,A001,T1,Temp Sensor,21.5,GPIO0(ADC)", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "2024-02-10 09:32:00,A001,H1"))

	rows, err := ReadHistory(csvPath, "2024-02-10 09:32")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[1].Value)
	assert.Equal(t, 21.5, *rows[1].Value)
}

func TestReadHistory_Missing(t *testing.T) {
	_, err := ReadHistory(filepath.Join(t.TempDir(), "none.csv"), "")
	assert.ErrorIs(t, err, cerrors.ErrMissingDocument)
}

type failingCloser struct {
	strings.Builder
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteHistory_CloseError(t *testing.T) {
	v := 21.5
	rows := []Row{{Timestamp: "2024-02-10 09:32:00", NodeID: "A001", DeviceID: "T1", DeviceName: "Temp", Value: &v, Pin: "GPIO0(ADC)"}}

	wc := &failingCloser{closeErr: errors.New("disk gone")}
	err := writeHistory(wc, true, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.True(t, wc.closed)
	assert.Equal(t, "timestamp,node_id,device_id,device_name,value,pin\n2024-02-10 09:32:00,A001,T1,Temp,21.5,GPIO0(ADC)\n", wc.String())

	wc = &failingCloser{}
	require.NoError(t, writeHistory(wc, false, rows))
	assert.True(t, wc.closed)
	assert.NotContains(t, wc.String(), "timestamp,")
}

func TestSeries(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	series := Series([]Row{
		{Timestamp: "2024-02-11 09:31:00", DeviceName: "Temp Sensor", Value: v(22.5)},
		{Timestamp: "2024-02-11 09:31:00", DeviceName: "Humidity Sensor", Value: v(60)},
		{Timestamp: "2024-02-11 09:32:10", DeviceName: "온도 센서", Value: v(23)},
		{Timestamp: "2024-02-11 09:33:00", DeviceName: "Leak Switch", Value: v(1)},
		{Timestamp: "2024-02-11 09:34:00", DeviceName: "Temp Sensor"},
	})
	assert.Equal(t, []string{"09:31", "09:32"}, series.Labels)
	assert.Equal(t, []Point{{T: "09:31", Y: 22.5}, {T: "09:32", Y: 23}}, series.Temp)
	assert.Equal(t, []Point{{T: "09:31", Y: 60}}, series.Humi)

	empty := Series(nil)
	assert.NotNil(t, empty.Labels)
	assert.NotNil(t, empty.Temp)
	assert.NotNil(t, empty.Humi)
}

func TestExporter_SinkFailureDoesNotStopOthers(t *testing.T) {
	failing := &recordingSink{name: "s3", err: errors.New("boom")}
	ok := &recordingSink{name: "feed"}
	e := NewExporter(newRegistry(t),
		WithLogger(log.Nop()),
		WithPaths("", ""),
		WithSinks(failing, ok),
	)

	e.Export(context.Background())
	e.Export(context.Background())

	assert.Equal(t, 2, failing.calls)
	assert.Equal(t, 2, ok.calls)
	assert.Len(t, ok.last.Nodes, 2)
}

func TestExporter_Run(t *testing.T) {
	sink := &recordingSink{name: "feed"}
	e := NewExporter(newRegistry(t),
		WithLogger(log.Nop()),
		WithPaths(filepath.Join(t.TempDir(), "live.json"), ""),
		WithIntervals(5*time.Millisecond, time.Hour),
		WithSinks(sink),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	assert.NoError(t, e.Run(ctx))
	assert.Greater(t, sink.calls, 0)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Sink(t *testing.T) {
	put := &fakePutter{}
	sink := &S3Sink{Client: put, Bucket: "farm"}
	snap := Collect(newRegistry(t), time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC))

	require.NoError(t, sink.Export(context.Background(), snap))
	assert.Equal(t, "farm", *put.input.Bucket)
	assert.Equal(t, "live/live_data.json", *put.input.Key)
	assert.Contains(t, string(put.body), `"timestamp":"2024-02-10 09:30:00"`)

	put.err = errors.New("denied")
	assert.Error(t, sink.Export(context.Background(), snap))
}

type fakeWriter struct {
	points []*write.Point
}

func (f *fakeWriter) WritePoint(_ context.Context, points ...*write.Point) error {
	f.points = append(f.points, points...)
	return nil
}

func TestInfluxSink(t *testing.T) {
	w := &fakeWriter{}
	sink := &InfluxSink{Writer: w}
	taken := time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, sink.Export(context.Background(), Collect(newRegistry(t), taken)))
	require.Len(t, w.points, 2)

	p := w.points[1]
	assert.Equal(t, "sensor_reading", p.Name())
	assert.Equal(t, taken, p.Time())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"node_id": "A001", "device_id": "T1", "pin": "GPIO0(ADC)"}, tags)
	for _, f := range p.FieldList() {
		if f.Key == "value" {
			assert.Equal(t, 21.5, f.Value)
		}
	}
}

type fakePublisher struct {
	nodes []string
}

func (f *fakePublisher) PublishSnapshot(nodeID string, _ any) {
	f.nodes = append(f.nodes, nodeID)
}

func TestFeedSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := &FeedSink{Publisher: pub}
	require.NoError(t, sink.Export(context.Background(), Collect(newRegistry(t), time.Now())))
	assert.Equal(t, []string{"A001", "B001"}, pub.nodes)
}

func TestBreakerSink(t *testing.T) {
	inner := &recordingSink{name: "influx", err: errors.New("unreachable")}
	b := NewBreakerSink(inner, 2, time.Minute)
	assert.Equal(t, "influx", b.Name())

	snap := LiveSnapshot{}
	assert.Error(t, b.Export(context.Background(), snap))
	assert.Error(t, b.Export(context.Background(), snap))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Export(context.Background(), snap)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}
