package config

import (
	"fmt"
	"os"

	"github.com/ecarrara/oci-registry-client/impl/registry"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"gopkg.in/yaml.v3"
)

// Docker Hub needs three different hosts so it is built in
const (
	DockerHub         = "index.docker.io"
	dockerHubService  = "registry.docker.io"
	dockerHubApiUrl   = "https://registry-1.docker.io"
	dockerHubTokenUrl = "https://auth.docker.io/token"
)

// authCfg holds basic auth user/pass for the token endpoint of a registry. The
// password can be read from an environment variable to keep it out of the file.
type authCfg struct {
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	PasswordFromEnv string `yaml:"passwordFromEnv"`
}

// RegistryConfig configures the client for access to one registry. Name is the
// registry host as it appears in image references, e.g. 'quay.io'. Everything
// else is optional: the service and token URL are discovered from the registry's
// auth challenge if omitted, and the API URL defaults to the scheme and host from
// the image reference.
type RegistryConfig struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Service     string             `yaml:"service"`
	ApiUrl      string             `yaml:"apiUrl"`
	TokenUrl    string             `yaml:"tokenUrl"`
	Auth        authCfg            `yaml:"auth"`
	Tls         registry.TLSConfig `yaml:"tls"`
}

// PullConfig configures the pull sub-command
type PullConfig struct {
	OutDir      string `yaml:"outDir"`
	Concurrency int64  `yaml:"concurrency"`
	ChunkSize   int64  `yaml:"chunkSize"`
	SkipVerify  bool   `yaml:"skipVerify"`
	FailFast    bool   `yaml:"failFast"`
	Quiet       bool   `yaml:"quiet"`
}

// Configuration represents the totality of configuration knobs and dials for the client.
type Configuration struct {
	LogLevel        string           `yaml:"logLevel"`
	LogFile         string           `yaml:"logFile"`
	ConfigFile      string           `yaml:"configFile"`
	DefaultRegistry string           `yaml:"defaultRegistry"`
	Os              string           `yaml:"os"`
	Arch            string           `yaml:"arch"`
	Variant         string           `yaml:"variant"`
	MetricsPort     int64            `yaml:"metricsPort"`
	PullTimeout     int64            `yaml:"pullTimeout"`
	Registries      []RegistryConfig `yaml:"registries"`
	PullConfig      PullConfig       `yaml:"pullConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command         string
	Image           string
	LogLevel        bool
	LogFile         bool
	ConfigFile      bool
	DefaultRegistry bool
	Os              bool
	Arch            bool
	Variant         bool
	MetricsPort     bool
	PullTimeout     bool
	OutDir          bool
	Concurrency     bool
	ChunkSize       bool
	SkipVerify      bool
	FailFast        bool
	Quiet           bool
}

var config Configuration

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetDefaultRegistry() string {
	return config.DefaultRegistry
}

func GetOs() string {
	return config.Os
}

func GetArch() string {
	return config.Arch
}

func GetVariant() string {
	return config.Variant
}

func GetMetricsPort() int64 {
	return config.MetricsPort
}

func GetPullTimeout() int64 {
	return config.PullTimeout
}

func GetRegistries() []RegistryConfig {
	return config.Registries
}

func GetPullConfig() PullConfig {
	return config.PullConfig
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	} else {
		config = cfg
	}
	return nil
}

// ConfigFor looks for a configuration entry keyed by the passed 'remote' arg (e.g.
// 'quay.io') and returns a registry client configuration for it. The passed api
// URL is used unless the entry overrides it. Docker Hub gets its well-known
// service and token endpoint. For any other registry without an entry, the
// service and token URL are left empty for the caller to discover.
//
// Credentials come from the entry's auth section. If the entry has no user they
// are resolved from the docker keychain (the docker config.json login entries
// and credential helpers), which is anonymous if there is no login for the
// remote.
func ConfigFor(remote, apiUrl string) (registry.Config, error) {
	cfg := registry.Config{
		Service: remote,
		APIURL:  apiUrl,
	}
	if remote == DockerHub || remote == "docker.io" {
		cfg.Service = dockerHubService
		cfg.APIURL = dockerHubApiUrl
		cfg.TokenURL = dockerHubTokenUrl
	}

	found := RegistryConfig{}
	for _, reg := range config.Registries {
		if reg.Name == remote {
			found = reg
			break
		}
	}
	if found.Service != "" {
		cfg.Service = found.Service
	}
	if found.ApiUrl != "" {
		cfg.APIURL = found.ApiUrl
	}
	if found.TokenUrl != "" {
		cfg.TokenURL = found.TokenUrl
	}
	cfg.TLS = found.Tls
	if found.Auth.User == "" {
		auth, err := keychainAuth(remote)
		if err != nil {
			return cfg, err
		}
		cfg.Auth = auth
		return cfg, nil
	}
	basic := &authn.Basic{Username: found.Auth.User, Password: found.Auth.Password}
	if found.Auth.PasswordFromEnv != "" {
		pass, ok := os.LookupEnv(found.Auth.PasswordFromEnv)
		if !ok {
			return cfg, fmt.Errorf("env var %s for config entry %s is not set", found.Auth.PasswordFromEnv, remote)
		}
		basic.Password = pass
	}
	cfg.Auth = basic
	return cfg, nil
}

// keychainAuth resolves the credentials for the passed remote from the docker
// keychain
func keychainAuth(remote string) (authn.Authenticator, error) {
	reg, err := name.NewRegistry(remote)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %q: %w", remote, err)
	}
	auth, err := authn.DefaultKeychain.Resolve(reg)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve credentials for %s: %w", remote, err)
	}
	return auth, nil
}
