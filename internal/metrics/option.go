package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "customOtelCollector"
	InsecureOtel                = false
	SecureOtel                  = true

	defaultExportInterval = 30 * time.Second
)

func NewPrometheusConfig() ProviderCfg {
	return ProviderCfg{Provider: PrometheusProvider}
}

func NewOtelCollectorConfig(url string, headers map[string]string, insecure bool) ProviderCfg {
	return ProviderCfg{
		Provider: OtelCollector,
		Endpoint: url,
		Headers:  headers,
		Insecure: insecure,
	}
}

type Config struct {
	ServiceName    string
	Provider       []ProviderCfg
	ExportInterval time.Duration
	registerer     prometheus.Registerer
}

func (c Config) interval() time.Duration {
	if c.ExportInterval <= 0 {
		return defaultExportInterval
	}
	return c.ExportInterval
}

type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

type OptionFn func(config Config) Config

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)

		return config
	}
}

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName

		return config
	}
}

func WithExportInterval(d time.Duration) OptionFn {
	return func(config Config) Config {
		config.ExportInterval = d

		return config
	}
}

// WithRegisterer scopes the Prometheus exporter to reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) OptionFn {
	return func(config Config) Config {
		config.registerer = reg

		return config
	}
}
