package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/logging"
	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/prometheus"
	"github.com/cloudhut/kafka-lag-monitor/remote"
	"github.com/cloudhut/kafka-lag-monitor/render"
	"github.com/cloudhut/kafka-lag-monitor/tui"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
)

const (
	configFilepathEnvKey = "CONFIG_FILEPATH"
	envPrefix            = "KAFKA_LAG_MONITOR_"
)

type Config struct {
	Remote   remote.Config     `koanf:"remote"`
	Kafka    kafka.Config      `koanf:"kafka"`
	Minion   minion.Config     `koanf:"minion"`
	Watch    tui.Config        `koanf:"watch"`
	Output   render.Config     `koanf:"output"`
	Exporter prometheus.Config `koanf:"exporter"`
	Logger   logging.Config    `koanf:"logger"`
}

func (c *Config) SetDefaults() {
	c.Remote.SetDefaults()
	c.Kafka.SetDefaults()
	c.Minion.SetDefaults()
	c.Watch.SetDefaults()
	c.Output.SetDefaults()
	c.Exporter.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate checks the sections that every mode needs.
func (c *Config) Validate() error {
	err := kafka.ValidateParser(c.Kafka.Parser)
	if err != nil {
		return fmt.Errorf("failed to validate kafka config: %w", err)
	}

	err = c.Minion.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate minion config: %w", err)
	}

	err = c.Watch.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate watch config: %w", err)
	}

	err = c.Output.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate output config: %w", err)
	}

	err = c.Exporter.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate exporter config: %w", err)
	}

	err = c.Logger.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate logger config: %w", err)
	}

	return nil
}

// ValidateRemote additionally checks everything needed to run the describe commands on a remote host.
func (c *Config) ValidateRemote() error {
	err := c.Remote.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate remote config: %w", err)
	}

	err = c.Kafka.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate kafka config: %w", err)
	}

	return c.Validate()
}

// loadConfig merges the defaults, the YAML config file, environment variables and the given flag overrides, in this
// order. The result is not validated because the required sections depend on the mode.
func loadConfig(configFilepath string, overrides map[string]interface{}) (Config, error) {
	var cfg Config
	cfg.SetDefaults()

	// 1. YAML config file, passed via flag or env variable
	if configFilepath == "" {
		configFilepath = os.Getenv(configFilepathEnvKey)
	}
	if configFilepath != "" {
		k := koanf.New(".")
		err := k.Load(file.Provider(configFilepath), yaml.Parser())
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		// Unknown keys in the YAML file are most likely typos, so we want to report them. Environment variables are
		// unmarshalled with `ErrorUnused` set to false because the environment is full of unrelated variables.
		err = unmarshalLayer(k, &cfg, true)
		if err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	}

	// 2. Environment variables
	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(s string, v string) (string, interface{}) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
		// Values stay strings. Comma separated values are split by the decode hook for slice fields only, so that
		// a bootstrap server list remains a single string.
		return key, v
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	err = unmarshalLayer(k, &cfg, false)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	// 3. Flags that have been set explicitly
	if len(overrides) > 0 {
		k = koanf.New(".")
		err = k.Load(confmap.Provider(overrides, "."), nil)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
		err = unmarshalLayer(k, &cfg, true)
		if err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}

	return cfg, nil
}

// unmarshalLayer decodes one config layer on top of cfg. Every layer has its own koanf instance because keys differ
// in case between YAML (camelCase) and environment variables (lower case), which would otherwise shadow each other.
func unmarshalLayer(k *koanf.Koanf, cfg *Config, errorUnused bool) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag:       "",
		FlatPaths: false,
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(",")),
			Metadata:         nil,
			Result:           cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      errorUnused,
			// Slices set by a higher layer replace the lower layer's slice instead of overwriting it element-wise
			ZeroFields: true,
		},
	})
}
