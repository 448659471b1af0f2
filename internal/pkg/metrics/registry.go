package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// registryManager 管理默认的 Prometheus Registerer, 测试中可以注入独立的 registry
type registryManager struct {
	mu         sync.RWMutex
	registerer prometheus.Registerer
}

var defaultRegistryManager = &registryManager{registerer: prometheus.DefaultRegisterer}

// SetRegisterer 设置全局 Registerer。
func SetRegisterer(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	defaultRegistryManager.mu.Lock()
	defaultRegistryManager.registerer = r
	defaultRegistryManager.mu.Unlock()
}

// GetRegisterer 返回当前的 Registerer。
func GetRegisterer() prometheus.Registerer {
	defaultRegistryManager.mu.RLock()
	defer defaultRegistryManager.mu.RUnlock()
	if defaultRegistryManager.registerer == nil {
		return prometheus.DefaultRegisterer
	}
	return defaultRegistryManager.registerer
}

var serviceName atomic.Value

// SetServiceName 设置所有指标 service 标签的默认值，在模块 OnInit 最开始调用
func SetServiceName(name string) {
	serviceName.Store(name)
}

// GetServiceName 当前服务名，没有设置时为 "unknown"
func GetServiceName() string {
	if name, _ := serviceName.Load().(string); name != "" {
		return name
	}
	return "unknown"
}

func normalizeServiceName(name string) string {
	if name == "" {
		return GetServiceName()
	}
	return name
}
