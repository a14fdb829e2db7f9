package types

// Config holds the full engine configuration. Values are read from a yaml
// file first, then overridden from the environment via envconfig, then
// secret references are resolved.
type Config struct {
	Chain struct {
		RpcEndpoint     string `yaml:"rpcEndpoint" envconfig:"CHAIN_RPC_ENDPOINT"`
		ChainID         uint64 `yaml:"chainId" envconfig:"CHAIN_ID"`
		CacheTtlSeconds uint64 `yaml:"cacheTtlSeconds" envconfig:"CHAIN_CACHE_TTL_SECONDS"`
	} `yaml:"chain"`

	Redis struct {
		Endpoint  string `yaml:"endpoint" envconfig:"REDIS_ENDPOINT"`
		Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
		KeyPrefix string `yaml:"keyPrefix" envconfig:"REDIS_KEY_PREFIX"`
	} `yaml:"redis"`

	MongoDB struct {
		ConnectionString string `yaml:"connectionString" envconfig:"MONGODB_CONNECTION_STRING"`
		Instance         string `yaml:"instance" envconfig:"MONGODB_INSTANCE"`
	} `yaml:"mongodb"`

	Identity struct {
		Endpoint        string `yaml:"endpoint" envconfig:"IDENTITY_ENDPOINT"`
		TimeoutSeconds  uint64 `yaml:"timeoutSeconds" envconfig:"IDENTITY_TIMEOUT_SECONDS"`
		CacheTtlSeconds uint64 `yaml:"cacheTtlSeconds" envconfig:"IDENTITY_CACHE_TTL_SECONDS"`
	} `yaml:"identity"`

	ContentStore struct {
		Endpoint       string `yaml:"endpoint" envconfig:"CONTENT_STORE_ENDPOINT"`
		TimeoutSeconds uint64 `yaml:"timeoutSeconds" envconfig:"CONTENT_STORE_TIMEOUT_SECONDS"`
		FetchCacheSize int    `yaml:"fetchCacheSize" envconfig:"CONTENT_STORE_FETCH_CACHE_SIZE"`
	} `yaml:"contentStore"`

	Snapshot struct {
		IntervalSeconds     uint64   `yaml:"intervalSeconds" envconfig:"SNAPSHOT_INTERVAL_SECONDS"`
		CooldownSeconds     uint64   `yaml:"cooldownSeconds" envconfig:"SNAPSHOT_COOLDOWN_SECONDS"`
		RequireMonotonicIDs bool     `yaml:"requireMonotonicIds" envconfig:"SNAPSHOT_REQUIRE_MONOTONIC_IDS"`
		InteractionRatio    float64  `yaml:"interactionRatio" envconfig:"SNAPSHOT_INTERACTION_RATIO"`
		Addresses           []string `yaml:"addresses" envconfig:"SNAPSHOT_ADDRESSES"`
	} `yaml:"snapshot"`

	Validator struct {
		// PrivateKey is the hex encoded secp256k1 signing key. Leave empty
		// and set PrivateKeySecret to resolve it from Secret Manager instead.
		PrivateKey       string `yaml:"privateKey" envconfig:"VALIDATOR_PRIVATE_KEY"`
		PrivateKeySecret string `yaml:"privateKeySecret" envconfig:"VALIDATOR_PRIVATE_KEY_SECRET"`
		Owner            string `yaml:"owner" envconfig:"VALIDATOR_OWNER"`
	} `yaml:"validator"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`

	Pprof struct {
		Enabled bool   `yaml:"enabled" envconfig:"PPROF_ENABLED"`
		Port    string `yaml:"port" envconfig:"PPROF_PORT"`
	} `yaml:"pprof"`
}
