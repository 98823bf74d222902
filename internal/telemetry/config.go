package telemetry

// Config selects where authentication spans go.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is host:port of an OTLP/gRPC collector.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of invocations traced, 0..1.
	SampleRate float64
}

// DefaultConfig leaves tracing off and points at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "dittoauth",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1,
	}
}
