// Package config provides YAML-based configuration loading for morty nodes.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/spf13/viper"
)

// Config is the root node configuration. Values are read once at start.
type Config struct {
    // NodeName is a human name for logs; also seeds the radio address
    NodeName string `mapstructure:"node_name" yaml:"node_name" validate:"required"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log" yaml:"log"`

    Radio   RadioConfig   `mapstructure:"radio" yaml:"radio"`
    Source  SourceConfig  `mapstructure:"source" yaml:"source"`
    Beacon  BeaconConfig  `mapstructure:"beacon" yaml:"beacon"`
    Serial  SerialConfig  `mapstructure:"serial" yaml:"serial"`
    Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
    LED     LEDConfig     `mapstructure:"led" yaml:"led"`
    Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
    // Format: console or json
    Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs" yaml:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development" yaml:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable" yaml:"enable"`
    Filename   string `mapstructure:"filename" yaml:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
    Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SourceConfig drives the GPS source role.
type SourceConfig struct {
    // ReportInterval gates broadcasts of samples with a fix
    ReportInterval time.Duration `mapstructure:"report_interval" yaml:"report_interval" validate:"gte=0"`
    // NoFixInterval gates "alive but no fix" broadcasts
    NoFixInterval time.Duration `mapstructure:"no_fix_interval" yaml:"no_fix_interval" validate:"gte=0"`
    // DeepSleep enables sleeping after a successful send while on battery
    DeepSleep     bool          `mapstructure:"deep_sleep" yaml:"deep_sleep"`
    SleepInterval time.Duration `mapstructure:"sleep_interval" yaml:"sleep_interval" validate:"gte=0"`
    Sensor        SensorConfig  `mapstructure:"sensor" yaml:"sensor"`
    Power         PowerConfig   `mapstructure:"power" yaml:"power"`
}

// SensorConfig selects where NMEA sentences come from.
type SensorConfig struct {
    // Kind: serial (GPS module on a UART) or file (recorded NMEA log)
    Kind   string `mapstructure:"kind" yaml:"kind" validate:"oneof=serial file"`
    Device string `mapstructure:"device" yaml:"device,omitempty" validate:"required_if=Kind serial"`
    Baud   int    `mapstructure:"baud" yaml:"baud" validate:"min=0"`
    Path   string `mapstructure:"path" yaml:"path,omitempty" validate:"required_if=Kind file"`
    // Loop replays a file sensor forever
    Loop bool `mapstructure:"loop" yaml:"loop"`
    // LineDelay paces replayed sentences
    LineDelay time.Duration `mapstructure:"line_delay" yaml:"line_delay" validate:"gte=0"`
}

// PowerConfig is the host stand-in for battery sensing.
type PowerConfig struct {
    Charging bool    `mapstructure:"charging" yaml:"charging"`
    Voltage  float32 `mapstructure:"voltage" yaml:"voltage" validate:"gte=0"`
    // ChargingFile, when set, is read on every sample; "1"/"true" means charging
    ChargingFile string `mapstructure:"charging_file" yaml:"charging_file,omitempty"`
}

// BeaconConfig drives the relay beacon role.
type BeaconConfig struct {
    PresenceInterval time.Duration `mapstructure:"presence_interval" yaml:"presence_interval" validate:"gt=0"`
}

// GatewayConfig drives the gateway role.
type GatewayConfig struct {
    // Endpoint is the backend base URL, e.g. https://morty.example.org
    Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
    DedupCapacity int           `mapstructure:"dedup_capacity" yaml:"dedup_capacity" validate:"min=1"`
    UploadTimeout time.Duration `mapstructure:"upload_timeout" yaml:"upload_timeout" validate:"gt=0"`
    // Format: json or cbor
    Format string `mapstructure:"format" yaml:"format" validate:"oneof=json cbor"`
}

// LEDConfig tunes the status LED.
type LEDConfig struct {
    Brightness uint8 `mapstructure:"brightness" yaml:"brightness"`
}

// MetricsConfig exposes Prometheus metrics over HTTP when Addr is set.
type MetricsConfig struct {
    Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns a Config populated with the firmware defaults.
func Default() *Config {
    return &Config{
        NodeName: "morty-1",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/morty.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Radio: RadioConfig{
            Kind:        "udp",
            Channel:     1,
            Listen:      ":4210",
            Broadcast:   []string{"255.255.255.255:4210"},
            QueueSize:   2,
            QueuePolicy: "block",
        },
        Source: SourceConfig{
            ReportInterval: 10 * time.Second,
            NoFixInterval:  10 * time.Second,
            SleepInterval:  10 * time.Second,
            Sensor:         SensorConfig{Kind: "serial", Device: "/dev/ttyUSB0", Baud: 9600},
            Power:          PowerConfig{Voltage: 4.2},
        },
        Beacon: BeaconConfig{PresenceInterval: 10 * time.Second},
        Serial: SerialConfig{Kind: "serial", Device: "/dev/ttyUSB1", Baud: 115200},
        Gateway: GatewayConfig{
            DedupCapacity: 10,
            UploadTimeout: 10 * time.Second,
            Format:        "json",
        },
        LED: LEDConfig{Brightness: 10},
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix MORTY and `.`/`-` are replaced with `_`.
// Example: MORTY_GATEWAY_ENDPOINT=https://morty.example.org
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("MORTY")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("node_name", cfg.NodeName)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("radio.kind", cfg.Radio.Kind)
    v.SetDefault("radio.channel", cfg.Radio.Channel)
    v.SetDefault("radio.address", cfg.Radio.Address)
    v.SetDefault("radio.listen", cfg.Radio.Listen)
    v.SetDefault("radio.broadcast", cfg.Radio.Broadcast)
    v.SetDefault("radio.queue_size", cfg.Radio.QueueSize)
    v.SetDefault("radio.queue_policy", cfg.Radio.QueuePolicy)
    v.SetDefault("source.report_interval", cfg.Source.ReportInterval)
    v.SetDefault("source.no_fix_interval", cfg.Source.NoFixInterval)
    v.SetDefault("source.deep_sleep", cfg.Source.DeepSleep)
    v.SetDefault("source.sleep_interval", cfg.Source.SleepInterval)
    v.SetDefault("source.sensor.kind", cfg.Source.Sensor.Kind)
    v.SetDefault("source.sensor.device", cfg.Source.Sensor.Device)
    v.SetDefault("source.sensor.baud", cfg.Source.Sensor.Baud)
    v.SetDefault("source.sensor.path", cfg.Source.Sensor.Path)
    v.SetDefault("source.sensor.loop", cfg.Source.Sensor.Loop)
    v.SetDefault("source.sensor.line_delay", cfg.Source.Sensor.LineDelay)
    v.SetDefault("source.power.charging", cfg.Source.Power.Charging)
    v.SetDefault("source.power.voltage", cfg.Source.Power.Voltage)
    v.SetDefault("source.power.charging_file", cfg.Source.Power.ChargingFile)
    v.SetDefault("beacon.presence_interval", cfg.Beacon.PresenceInterval)
    v.SetDefault("serial.kind", cfg.Serial.Kind)
    v.SetDefault("serial.device", cfg.Serial.Device)
    v.SetDefault("serial.baud", cfg.Serial.Baud)
    v.SetDefault("serial.address", cfg.Serial.Address)
    v.SetDefault("gateway.endpoint", cfg.Gateway.Endpoint)
    v.SetDefault("gateway.dedup_capacity", cfg.Gateway.DedupCapacity)
    v.SetDefault("gateway.upload_timeout", cfg.Gateway.UploadTimeout)
    v.SetDefault("gateway.format", cfg.Gateway.Format)
    v.SetDefault("led.brightness", cfg.LED.Brightness)
    v.SetDefault("metrics.addr", cfg.Metrics.Addr)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("MORTY_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `morty`
        v.SetConfigName("morty")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".morty"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) validate() error {
    c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
    c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }
    if strings.TrimSpace(c.NodeName) == "" {
        c.NodeName = "morty-1"
    }
    c.Radio.Kind = strings.ToLower(strings.TrimSpace(c.Radio.Kind))
    c.Radio.QueuePolicy = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.Radio.QueuePolicy)), "-", "_")
    c.Serial.Kind = strings.ToLower(strings.TrimSpace(c.Serial.Kind))
    c.Source.Sensor.Kind = strings.ToLower(strings.TrimSpace(c.Source.Sensor.Kind))
    c.Gateway.Format = strings.ToLower(strings.TrimSpace(c.Gateway.Format))
    c.Gateway.Endpoint = strings.TrimRight(strings.TrimSpace(c.Gateway.Endpoint), "/")

    if err := validate.Struct(c); err != nil {
        var verrs validator.ValidationErrors
        if errors.As(err, &verrs) && len(verrs) > 0 {
            fe := verrs[0]
            return fmt.Errorf("invalid %s: %q fails %q", fieldPath(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag())
        }
        return fmt.Errorf("validate config: %w", err)
    }
    if c.Radio.Kind == "udp" && len(c.Radio.Broadcast) == 0 {
        return fmt.Errorf("invalid radio.broadcast: at least one destination is required for udp")
    }
    return nil
}

// fieldPath turns "Config.Radio.QueuePolicy" into "Radio.QueuePolicy".
func fieldPath(ns string) string {
    if i := strings.IndexByte(ns, '.'); i >= 0 { return ns[i+1:] }
    return ns
}

// RequireGateway checks the settings only the gateway role needs.
func (c *Config) RequireGateway() error {
    if c.Gateway.Endpoint == "" { return errors.New("invalid gateway.endpoint: required for the gateway role") }
    return nil
}
