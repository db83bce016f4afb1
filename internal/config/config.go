package config

const (
	AgentID                 = "agent.id"
	AgentEnableMonitoring   = "agent.enable_monitoring"
	AgentMonitoringPort     = "agent.monitoring_port"
	AgentLogLevel           = "agent.log_level"
	AgentLogFormat          = "agent.log_format"
	AgentHTTPPort           = "agent.http_port"
	AgentHTTPMode           = "agent.http_mode"
	AgentHTTPRequestTimeout = "agent.http_request_timeout"
	AgentTLSCertFile        = "agent.tls_cert_file"
	AgentTLSKeyFile         = "agent.tls_key_file"
	AgentTLSClientCAFile    = "agent.tls_client_ca_file"
	AgentGRPCPort           = "agent.grpc_port"
	AgentEnableGRPC         = "agent.enable_grpc"
	AgentHealthInterval     = "agent.health_interval"
	AgentEnableMQTT         = "agent.enable_mqtt"
	AgentEnableTracing      = "agent.enable_tracing"
	AgentEnableS3           = "agent.enable_s3"
	AgentEnableInflux       = "agent.enable_influx"
	AgentEnableExporter     = "agent.enable_exporter"
	AgentEnableHTTP         = "agent.enable_http"
)

const (
	FarmNodeConfigPath      = "farm.node_config_path"
	FarmCatalogPath         = "farm.catalog_path"
	FarmZoneSchedulePath    = "farm.zone_schedule_path"
	FarmJournalPath         = "farm.journal_path"
	FarmMonitorIntervalMin  = "farm.monitor_interval_min"
	FarmMonitorIntervalMax  = "farm.monitor_interval_max"
	FarmCoordinatorCadence  = "farm.coordinator_cadence"
	FarmCheckpointHours     = "farm.checkpoint_hours"
	FarmAlertThrottleWindow = "farm.alert_throttle_window"
	FarmAlertThrottleKeys   = "farm.alert_throttle_keys"
)

const (
	ExporterLivePath     = "exporter.live_path"
	ExporterCSVPath      = "exporter.csv_path"
	ExporterLiveInterval = "exporter.live_interval"
	ExporterCSVInterval  = "exporter.csv_interval"
	ExporterS3Bucket     = "exporter.s3_bucket"
	ExporterS3Key        = "exporter.s3_key"

	ExporterSinkTimeout     = "exporter.sink_timeout"
	ExporterBreakerFailures = "exporter.breaker_failures"
	ExporterBreakerOpen     = "exporter.breaker_open"
)

const (
	MqttEndpoint              = "mqtt.endpoint"
	MqttCleanSession          = "mqtt.clean_session"
	MqttClientId              = "mqtt.client_id"
	MqttAutoReconnect         = "mqtt.auto_reconnect"
	MqttConnectMaxElapsed     = "mqtt.connect_max_elapsed"
	MqttMaxConnectInterval    = "mqtt.max_connect_interval"
	MqttWriteTimeout          = "mqtt.write_timeout"
	MqttPingTimeout           = "mqtt.ping_timeout"
	MqttKeepAliveDuration     = "mqtt.keep_alive_duration"
	MqttResumeSubs            = "mqtt.resume_subs"
	MqttConnectTimeout        = "mqtt.connect_timeout"
	MqttConnectRetryInterval  = "mqtt.connect_retry_interval"
	MqttTLSInsecureSkipVerify = "mqtt.tls_insecure_skip_verify"
	MqttAlertTopicPrefix      = "mqtt.alert_topic_prefix"
	MqttAlertQoS              = "mqtt.alert_qos"
	MqttPublishTimeout        = "mqtt.publish_timeout"
)

const (
	S3Region                = "s3.region"
	S3Endpoint              = "s3.endpoint"
	S3AccessKey             = "s3.access_key"
	S3SecretKey             = "s3.secret_key"
	S3UsePathStyle          = "s3.use_path_style"
	S3TLSInsecureSkipVerify = "s3.tls_insecure_skip_verify"
)

const (
	InfluxURL         = "influx.url"
	InfluxToken       = "influx.token"
	InfluxOrg         = "influx.org"
	InfluxBucket      = "influx.bucket"
	InfluxMeasurement = "influx.measurement"
)

const (
	TracingEndpoint    = "tracing.endpoint"
	TracingInsecure    = "tracing.insecure"
	TracingServiceName = "tracing.service_name"
	TracingNamespace   = "tracing.namespace"
)
