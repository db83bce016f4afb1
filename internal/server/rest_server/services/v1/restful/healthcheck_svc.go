package restful

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IHealthcheckService interface {
	Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError)
	Farm(ctx *gin.Context) (*api_response.BaseOutput, *cerrors.AppError)
}

// FeedCounter reports the number of live feed subscribers.
type FeedCounter interface {
	Clients() int
}

type HealthcheckService struct {
	registry *registry.Registry
	feed     FeedCounter
	logger   *log.Logger
}

func NewHealthcheckService(options ...func(*HealthcheckService)) *HealthcheckService {
	svc := &HealthcheckService{}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithHealthRegistry(reg *registry.Registry) func(*HealthcheckService) {
	return func(svc *HealthcheckService) {
		svc.registry = reg
	}
}

func WithHealthFeed(feed FeedCounter) func(*HealthcheckService) {
	return func(svc *HealthcheckService) {
		svc.feed = feed
	}
}

type HealthcheckInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
}

type HealthcheckOutput struct {
	Host    HostInfo    `json:"host"`
	Memory  MemoryInfo  `json:"memory"`
	Network NetworkInfo `json:"network"`
	CPU     CPUInfo     `json:"cpu"`
	Farm    FarmInfo    `json:"farm"`
}

type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

type NetworkInfo struct {
	Interfaces []utilities.NIC `json:"interfaces"`
}

type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	Uptime          uint64 `json:"uptime"`
}

type CPUInfo struct {
	ModelName    string `json:"model_name"`
	LogicalCores int    `json:"logical_cores"`
}

type FarmInfo struct {
	Nodes       int `json:"nodes"`
	Provisioned int `json:"provisioned"`
	Sensors     int `json:"sensors"`
	Actuators   int `json:"actuators"`
	FeedClients int `json:"feed_clients"`
}

func (svc *HealthcheckService) Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError) {
	rootCtx, span := input.Tracer.Start(input.TracerCtx, "healthcheck-handler")
	defer span.End()

	lg := svc.logger.With(
		zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
	)

	_, cSpan := input.Tracer.Start(rootCtx, "get-host-info")
	hostStat, err := host.InfoWithContext(rootCtx)
	cSpan.End()
	if err != nil {
		lg.Error(errors.Wrap(err, "failed to get host info").Error())
		return nil, cerrors.ErrGenericInternalServer
	}

	_, cSpan = input.Tracer.Start(rootCtx, "get-memory-info")
	memoryInfo, err := mem.VirtualMemoryWithContext(rootCtx)
	cSpan.End()
	if err != nil {
		lg.Error(errors.Wrap(err, "failed to get memory info").Error())
		return nil, cerrors.ErrGenericInternalServer
	}

	_, cSpan = input.Tracer.Start(rootCtx, "get-cpu-info")
	cpuInfo := CPUInfo{}
	if stats, err := cpu.InfoWithContext(rootCtx); err == nil && len(stats) > 0 {
		cpuInfo.ModelName = stats[0].ModelName
	}
	if cores, err := cpu.CountsWithContext(rootCtx, true); err == nil {
		cpuInfo.LogicalCores = cores
	}
	cSpan.End()

	// Interfaces are best effort: a sandboxed host may not expose them.
	nics, err := utilities.HardwareNICs()
	if err != nil {
		lg.Warn(errors.Wrap(err, "failed to list network interfaces").Error())
	}

	resp := ok(HealthcheckOutput{
		Host: HostInfo{
			Hostname:        hostStat.Hostname,
			OS:              hostStat.OS,
			Platform:        hostStat.Platform,
			PlatformVersion: hostStat.PlatformVersion,
			KernelVersion:   hostStat.KernelVersion,
			Arch:            hostStat.KernelArch,
			Uptime:          hostStat.Uptime,
		},
		Memory: MemoryInfo{
			Total:       memoryInfo.Total,
			Free:        memoryInfo.Free,
			UsedPercent: memoryInfo.UsedPercent,
		},
		Network: NetworkInfo{Interfaces: nics},
		CPU:     cpuInfo,
		Farm:    svc.farmInfo(),
	}, 0)
	return resp, nil
}

// Farm reports node and feed counts only. It reads no host statistics, so
// it suits frequent liveness checks. An empty registry is unavailable.
func (svc *HealthcheckService) Farm(_ *gin.Context) (*api_response.BaseOutput, *cerrors.AppError) {
	info := svc.farmInfo()
	if info.Nodes == 0 {
		return nil, cerrors.ErrNoNodesRegistered
	}
	return ok(info, 0), nil
}

func (svc *HealthcheckService) farmInfo() FarmInfo {
	info := FarmInfo{}
	if svc.feed != nil {
		info.FeedClients = svc.feed.Clients()
	}
	if svc.registry == nil {
		return info
	}
	for _, n := range svc.registry.Enumerate() {
		ni := n.Info()
		info.Nodes++
		if ni.Provisioned {
			info.Provisioned++
		}
		info.Sensors += ni.Sensors
		info.Actuators += ni.Actuators
	}
	return info
}
