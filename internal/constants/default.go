package constants

import "time"

const (
	AgentDefaultHTTPPort       = 8080
	AgentDefaultMonitoringPort = 6060
	AgentDefaultGRPCPort       = 9090
	AgentDefaultHealthInterval = 15 * time.Second
)

const (
	DefaultHTTPRequestTimeout = 10
	GraceWaitPeriod           = 10 * time.Second
)

const (
	MqttDefaultWriteTimeout         = 10 * time.Second
	MqttDefaultKeepAlive            = 30 * time.Second
	MqttDefaultPingTimeout          = 5 * time.Second
	MqttDefaultMaxReconnectInterval = 30 * time.Second
	MqttDefaultConnectTimeout       = 10 * time.Second
	MqttDefaultConnectRetryInterval = 10 * time.Second
	MqttDefaultConnectMaxElapsed    = 2 * time.Minute
	MqttDefaultPublishTimeout       = 5 * time.Second
	MqttDefaultAlertTopicPrefix     = "smartfarm"
	MqttDefaultAlertQoS             = 1
)

const (
	FarmDefaultNodeConfigPath     = "data/config.json"
	FarmDefaultCatalogPath        = "data/catalog_crop.json"
	FarmDefaultZoneSchedulePath   = "data/zone_config.json"
	FarmDefaultJournalPath        = "data/journal.json"
	FarmDefaultMonitorIntervalMin = 4 * time.Second
	FarmDefaultMonitorIntervalMax = 6 * time.Second
	FarmDefaultCoordinatorCadence = time.Minute
	FarmDefaultAlertThrottle      = 30 * time.Second
	FarmDefaultAlertThrottleKeys  = 10_000
)

// FarmDefaultCheckpointHours are the wall-clock hours at which zone stages are re-resolved.
var FarmDefaultCheckpointHours = []int{0, 6, 12, 18}

const (
	ExporterDefaultLivePath     = "data/live_data.json"
	ExporterDefaultCSVPath      = "data/smartfarm_tsdb.csv"
	ExporterDefaultLiveInterval = 2 * time.Second
	ExporterDefaultCSVInterval  = 60 * time.Second
	ExporterDefaultS3Key        = "live/live_data.json"
	ExporterDefaultTimeout      = 10 * time.Second

	ExporterDefaultBreakerFailures = 3
	ExporterDefaultBreakerOpen     = 30 * time.Second
)

const (
	InfluxDefaultMeasurement = "sensor_reading"
)

const (
	DefaultStage = "sowing"
	DefaultCrop  = "none"
)
