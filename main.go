package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/okieraised/smartfarm-agent/internal/agent/node_monitor"
	"github.com/okieraised/smartfarm-agent/internal/agent/threshold_coordinator"
	"github.com/okieraised/smartfarm-agent/internal/agent/tsdb_exporter"
	"github.com/okieraised/smartfarm-agent/internal/automation"
	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/influx_client"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/local_cache"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/metrics"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/mqtt_client"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/s3_client"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/livefeed"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/recipe"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"github.com/okieraised/smartfarm-agent/internal/server/grpc_server"
	"github.com/okieraised/smartfarm-agent/internal/server/monitoring"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/routers"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/ws"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var once sync.Once

func mirrorEnvCase() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		k, v := kv[:i], kv[i+1:]
		_ = os.Setenv(strings.ToUpper(k), v)
		_ = os.Setenv(strings.ToLower(k), v)
	}
}

func loadDotenvIfExists(filename string, overload bool) (bool, error) {
	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if overload {
		return true, godotenv.Overload(filename)
	}
	return true, godotenv.Load(filename)
}

func readConfigIfExists(path string, merge bool) (bool, error) {
	viper.SetConfigFile(path)
	var err error
	if merge {
		err = viper.MergeInConfig()
	} else {
		err = viper.ReadInConfig()
	}
	if err == nil {
		return true, nil
	}
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) || os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func detectProfile() string {
	for _, k := range []string{"APP_ENV", "app_env"} {
		if v, ok := os.LookupEnv(k); ok {
			return strings.ToLower(v)
		}
	}
	return "dev"
}

// Load layers .env, .<profile>.env, conf/config.toml and
// conf/<profile>.config.toml, then lets the environment override any key
// ("farm.catalog_path" is read from FARM__CATALOG_PATH).
func Load() error {
	envFound, err := loadDotenvIfExists(".env", false)
	if err != nil {
		return err
	}
	if envFound {
		mirrorEnvCase()
	}
	profile := detectProfile()

	pfFound, err := loadDotenvIfExists("."+profile+".env", true)
	if err != nil {
		return err
	}
	if pfFound {
		mirrorEnvCase()
	}

	cfgFound, err := readConfigIfExists("conf/config.toml", false)
	if err != nil {
		return err
	}

	if !envFound && !cfgFound {
		return fmt.Errorf("no configuration sources found: missing both .env and conf/config.toml")
	}

	if _, err := readConfigIfExists("conf/"+profile+".config.toml", true); err != nil {
		return err
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	return nil
}

func init() {
	once.Do(func() {
		err := Load()
		if err != nil {
			panic(fmt.Sprintf("Failed to setup service configuration: %v", err))
		}

		// Init default logger
		err = log.InitDefault()
		if err != nil {
			panic(err)
		}
	})
}

func agentID() string {
	if id := viper.GetString(config.AgentID); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		return "smartfarm-agent"
	}
	return host
}

// agent holds everything the long-running tasks share.
type agent struct {
	id       string
	metrics  *metrics.Metrics
	throttle *local_cache.Cache
	registry *registry.Registry
	hub      *livefeed.Hub
	mqtt     mqtt.Client
	sinks    []tsdb_exporter.Sink
	closers  []func()
}

func (a *agent) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newAgent(ctx context.Context) (*agent, error) {
	a := &agent{id: agentID(), metrics: metrics.New()}

	// Initialize local cache
	log.Default().Info("Started initializing local cache")
	throttle, err := local_cache.NewLocalCache(
		local_cache.WithMaxKeys(int64(config.Int(config.FarmAlertThrottleKeys, constants.FarmDefaultAlertThrottleKeys))),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize local cache")
	}
	a.throttle = throttle
	a.closers = append(a.closers, throttle.Close)
	log.Default().Info("Finished initializing local cache")

	// Provision nodes
	nodePath := config.String(config.FarmNodeConfigPath, constants.FarmDefaultNodeConfigPath)
	cfgs, err := node.LoadConfigs(nodePath)
	if err != nil {
		a.close()
		return nil, errors.Wrapf(err, "failed to load node configuration %s", nodePath)
	}
	catalog := recipe.FileCatalog{Path: config.String(config.FarmCatalogPath, constants.FarmDefaultCatalogPath)}
	reg, failed := registry.FromConfigs(cfgs, log.Default(), node.WithCatalog(catalog), node.WithLogger(log.Default()))
	a.registry = reg
	a.metrics.SetNodes(reg.Len())
	log.Default().Info("Finished provisioning nodes", zap.Int("nodes", reg.Len()), zap.Int("failed", failed))

	a.hub = livefeed.NewHub(a.id, log.Default())

	// Initialize MQTT client if enabled
	if config.Bool(config.AgentEnableMQTT, false) {
		log.Default().Info("Started initializing client connection to MQTT broker")
		clientID := config.String(config.MqttClientId, a.id)
		client, mErr := mqtt_client.NewMQTTClient(
			ctx,
			viper.GetString(config.MqttEndpoint),
			clientID,
			config.Duration(config.MqttConnectMaxElapsed, constants.MqttDefaultConnectMaxElapsed),
		)
		if mErr != nil {
			a.close()
			return nil, errors.Wrap(mErr, "failed to initialize client connection to MQTT broker")
		}
		a.mqtt = client
		statusTopic := mqtt_client.StatusTopic(config.String(config.MqttAlertTopicPrefix, constants.MqttDefaultAlertTopicPrefix), clientID)
		a.closers = append(a.closers, func() { mqtt_client.Disconnect(client, statusTopic, 250) })
		log.Default().Info("Finished initializing client connection to MQTT broker")
	}

	sinkTimeout := config.Duration(config.ExporterSinkTimeout, constants.ExporterDefaultTimeout)
	breakerFails := uint32(config.Int(config.ExporterBreakerFailures, constants.ExporterDefaultBreakerFailures))
	breakerOpen := config.Duration(config.ExporterBreakerOpen, constants.ExporterDefaultBreakerOpen)

	if config.Bool(config.AgentEnableS3, false) {
		log.Default().Info("Started initializing client connection to external S3 storage")
		client, sErr := s3_client.NewS3Client(
			ctx,
			s3_client.WithRegion(viper.GetString(config.S3Region)),
			s3_client.WithEndpoint(viper.GetString(config.S3Endpoint), viper.GetBool(config.S3UsePathStyle)),
			s3_client.WithStaticCredentials(viper.GetString(config.S3AccessKey), viper.GetString(config.S3SecretKey), ""),
			s3_client.WithInsecureSkipVerify(viper.GetBool(config.S3TLSInsecureSkipVerify)),
			s3_client.WithRetry(5, 30*time.Second),
		)
		if sErr != nil {
			a.close()
			return nil, errors.Wrap(sErr, "failed to initialize client connection to external S3 storage")
		}
		a.sinks = append(a.sinks, tsdb_exporter.NewBreakerSink(&tsdb_exporter.S3Sink{
			Client: client,
			Bucket: viper.GetString(config.ExporterS3Bucket),
			Key:    config.String(config.ExporterS3Key, constants.ExporterDefaultS3Key),
		}, breakerFails, breakerOpen))
		log.Default().Info("Finished initializing client connection to external S3 storage")
	}

	if config.Bool(config.AgentEnableInflux, false) {
		log.Default().Info("Started initializing client connection to InfluxDB")
		client, iErr := influx_client.NewInfluxClient(
			influx_client.WithURL(viper.GetString(config.InfluxURL)),
			influx_client.WithToken(viper.GetString(config.InfluxToken)),
			influx_client.WithTarget(viper.GetString(config.InfluxOrg), viper.GetString(config.InfluxBucket)),
			influx_client.WithRequestTimeout(sinkTimeout),
		)
		if iErr != nil {
			a.close()
			return nil, errors.Wrap(iErr, "failed to initialize client connection to InfluxDB")
		}
		if pErr := client.Ping(ctx); pErr != nil {
			log.Default().Warn("InfluxDB not reachable yet, writes will be retried by the exporter", zap.Error(pErr))
		}
		a.closers = append(a.closers, client.Close)
		a.sinks = append(a.sinks, tsdb_exporter.NewBreakerSink(&tsdb_exporter.InfluxSink{
			Writer:      client.Writer(),
			Measurement: config.String(config.InfluxMeasurement, constants.InfluxDefaultMeasurement),
		}, breakerFails, breakerOpen))
		log.Default().Info("Finished initializing client connection to InfluxDB")
	}

	// Initialize OTEL tracer if enabled
	if config.Bool(config.AgentEnableTracing, false) {
		log.Default().Info("Started initializing OTEL tracer")
		shutdown, tErr := tracer_client.NewTracerClient(
			tracer_client.WithEndpoint(viper.GetString(config.TracingEndpoint)),
			tracer_client.WithInsecure(viper.GetBool(config.TracingInsecure)),
			tracer_client.WithServiceName(config.String(config.TracingServiceName, "smartfarm-agent")),
			tracer_client.WithNamespace(viper.GetString(config.TracingNamespace)),
			tracer_client.WithAgentID(a.id),
		)
		if tErr != nil {
			a.close()
			return nil, errors.Wrap(tErr, "failed to initialize OTEL tracer")
		}
		a.closers = append(a.closers, func() {
			sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sCtx)
		})
		log.Default().Info("Finished initializing OTEL tracer")
	}

	log.Default().Info("Finished initializing connection to external services")
	return a, nil
}

func (a *agent) alarmSinks() []node_monitor.AlarmSink {
	sinks := []node_monitor.AlarmSink{
		node_monitor.LogSink{Logger: log.Default().Named("alarms")},
		node_monitor.MetricsSink{Metrics: a.metrics},
		a.hub,
	}
	if a.mqtt != nil {
		publisher := mqtt_client.NewAlertPublisher(
			a.mqtt,
			config.String(config.MqttAlertTopicPrefix, constants.MqttDefaultAlertTopicPrefix),
			byte(config.Int(config.MqttAlertQoS, constants.MqttDefaultAlertQoS)),
			config.Duration(config.MqttPublishTimeout, constants.MqttDefaultPublishTimeout),
		)
		sinks = append(sinks, node_monitor.MQTTSink{Publisher: publisher})
	}
	return sinks
}

// healthChecks feeds the gRPC health service.
func (a *agent) healthChecks() map[string]grpc_server.Check {
	checks := map[string]grpc_server.Check{
		"smartfarm.registry": func() bool {
			for _, n := range a.registry.Enumerate() {
				if n.Provisioned() {
					return true
				}
			}
			return false
		},
	}
	if a.mqtt != nil {
		checks["smartfarm.mqtt"] = a.mqtt.IsConnectionOpen
	}
	return checks
}

func (a *agent) routes() func(*gin.Engine) {
	appState := routers.NewAppState()

	// v1 restful svc
	v1RestState := routers.NewV1RestState()
	v1RestState.SetHealthcheckService(
		restful.NewHealthcheckService(
			restful.WithHealthRegistry(a.registry),
			restful.WithHealthFeed(a.hub),
		),
	)
	v1RestState.SetNodeService(
		restful.NewNodeService(restful.WithNodeRegistry(a.registry)),
	)
	v1RestState.SetHistoryService(
		restful.NewHistoryService(
			restful.WithHistoryPath(config.String(config.ExporterCSVPath, constants.ExporterDefaultCSVPath)),
		),
	)
	v1RestState.SetJournalService(
		restful.NewJournalService(
			restful.WithJournalPath(config.String(config.FarmJournalPath, constants.FarmDefaultJournalPath)),
		),
	)
	appState.SetV1RestState(v1RestState)
	appState.SetMetricsHandler(a.metrics.Handler())

	websocketState := routers.NewWebsocketState()
	websocketState.SetWebsocketService(
		ws.NewWebsocketService(ws.WithFeedHub(a.hub)),
	)
	appState.SetWebsocketState(websocketState)

	return routers.NewRootRouter(appState).InitRouters
}

func main() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newAgent(parentCtx)
	if err != nil {
		log.Default().Fatal(err.Error())
		return
	}
	defer a.close()
	defer func() { _ = log.Sync() }()

	g, ctx := errgroup.WithContext(parentCtx)

	// Live feed hub
	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	// Monitoring loops, one per node
	dispatcher := automation.NewDispatcher(
		a.registry,
		automation.WithThrottle(a.throttle, config.Duration(config.FarmAlertThrottleWindow, constants.FarmDefaultAlertThrottle)),
		automation.WithMetrics(a.metrics),
		automation.WithSinks(a.hub),
	)
	g.Go(func() error {
		mErr := node_monitor.RunAll(ctx, a.registry,
			node_monitor.WithIntervalRange(
				config.Duration(config.FarmMonitorIntervalMin, constants.FarmDefaultMonitorIntervalMin),
				config.Duration(config.FarmMonitorIntervalMax, constants.FarmDefaultMonitorIntervalMax),
			),
			node_monitor.WithDispatcher(dispatcher),
			node_monitor.WithSinks(a.alarmSinks()...),
		)
		if mErr != nil {
			return mErr
		}
		return ctx.Err()
	})

	// Threshold coordinator
	g.Go(func() error {
		coordinator := threshold_coordinator.NewCoordinator(
			a.registry,
			recipe.FileSchedule{Path: config.String(config.FarmZoneSchedulePath, constants.FarmDefaultZoneSchedulePath)},
			threshold_coordinator.WithCadence(config.Duration(config.FarmCoordinatorCadence, constants.FarmDefaultCoordinatorCadence)),
			threshold_coordinator.WithCheckpointHours(config.Hours(config.FarmCheckpointHours, constants.FarmDefaultCheckpointHours)...),
			threshold_coordinator.WithMetrics(a.metrics),
		)
		return coordinator.Run(ctx)
	})

	// Time-series exporter
	if config.Bool(config.AgentEnableExporter, true) {
		g.Go(func() error {
			sinks := append([]tsdb_exporter.Sink{&tsdb_exporter.FeedSink{Publisher: a.hub}}, a.sinks...)
			exporter := tsdb_exporter.NewExporter(
				a.registry,
				tsdb_exporter.WithPaths(
					config.String(config.ExporterLivePath, constants.ExporterDefaultLivePath),
					config.String(config.ExporterCSVPath, constants.ExporterDefaultCSVPath),
				),
				tsdb_exporter.WithIntervals(
					config.Duration(config.ExporterLiveInterval, constants.ExporterDefaultLiveInterval),
					config.Duration(config.ExporterCSVInterval, constants.ExporterDefaultCSVInterval),
				),
				tsdb_exporter.WithSinkTimeout(config.Duration(config.ExporterSinkTimeout, constants.ExporterDefaultTimeout)),
				tsdb_exporter.WithSinks(sinks...),
				tsdb_exporter.WithMetrics(a.metrics),
			)
			return exporter.Run(ctx)
		})
	}

	// Init profiling
	g.Go(func() error {
		if config.Bool(config.AgentEnableMonitoring, false) {
			mErr := monitoring.NewMonitoringServer(ctx)
			if mErr != nil {
				return mErr
			}
		}
		return ctx.Err()
	})

	// Init HTTP server
	if config.Bool(config.AgentEnableHTTP, true) {
		g.Go(func() error {
			rErr := rest_server.NewHTTPServer(ctx, a.routes())
			if rErr != nil {
				return rErr
			}
			return ctx.Err()
		})
	}

	// Init gRPC health server
	if config.Bool(config.AgentEnableGRPC, false) {
		reporter := grpc_server.NewHealthReporter(
			config.Duration(config.AgentHealthInterval, constants.AgentDefaultHealthInterval),
			a.healthChecks(),
		)
		g.Go(func() error {
			return reporter.Run(ctx)
		})
		g.Go(func() error {
			gErr := grpc_server.NewGRPCServer(ctx, reporter)
			if gErr != nil {
				return gErr
			}
			return ctx.Err()
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case sig := <-sigCh:
		log.Default().Info(fmt.Sprintf("Signal received: %v", sig))
		cancel()

		select {
		case <-done:
			log.Default().Info("All tasks exited, shutting down agent")
		case sig2 := <-sigCh:
			log.Default().Info(fmt.Sprintf("Second signal received: %v", sig2))
		case <-time.After(constants.GraceWaitPeriod):
			log.Default().Info("Grace period timed out, forcing exit")
		}

	case err = <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Default().Error("Services finished early with error", zap.Error(err))
		}
	}
}
