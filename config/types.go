package config

// RPC configures the JSON-RPC listener.
type RPC struct {
	Address           string  `toml:"Address"`
	ReadHeaderTimeout int     `toml:"ReadHeaderTimeout"` // seconds
	WriteTimeout      int     `toml:"WriteTimeout"`      // seconds
	RateLimitPerSec   float64 `toml:"RateLimitPerSec"`
	RateLimitBurst    int     `toml:"RateLimitBurst"`
	// AuthTokenEnv names the environment variable holding the bearer token
	// required for stake_sendTransaction. Submissions are refused while the
	// variable is unset.
	AuthTokenEnv string `toml:"AuthTokenEnv"`
	// JWTSecretEnv names the environment variable holding an HMAC secret.
	// When set, HS256 bearer tokens signed with it are accepted as well.
	JWTSecretEnv      string `toml:"JWTSecretEnv"`
	JWTIssuer         string `toml:"JWTIssuer"`
	TrustForwardedFor bool   `toml:"TrustForwardedFor"`
}

// Indexer configures the SQL index of committed events. An empty Driver
// disables it.
type Indexer struct {
	Driver string `toml:"Driver"` // sqlite or postgres
	DSN    string `toml:"DSN"`
}

// Staking configures the staking program.
type Staking struct {
	ProgramLabel  string `toml:"ProgramLabel"`
	RecordDeposit uint64 `toml:"RecordDeposit"`
}

// Logging configures structured logs.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}
