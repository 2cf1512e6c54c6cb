package telemetry

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "screening-e2e"

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS to the collector.
	Insecure bool

	// SampleRate is the fraction of test runs traced, 0.0 to 1.0.
	SampleRate float64

	// Run is attached to every exported span as resource attributes.
	Run RunInfo
}

// RunInfo describes how a test run was configured.
type RunInfo struct {
	DataMode string
	Policy   string
	Retries  int
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    DefaultServiceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
