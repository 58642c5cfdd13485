package config

// RadioConfig describes the broadcast radio.
// Example YAML:
// radio:
//   kind: udp
//   channel: 1
//   listen: ":4210"
//   broadcast: ["255.255.255.255:4210"]
//   queue_size: 2
//   queue_policy: block
type RadioConfig struct {
    // Kind: udp or mem (in-process, for simulations)
    Kind    string `mapstructure:"kind" yaml:"kind" validate:"oneof=udp mem"`
    Channel uint8  `mapstructure:"channel" yaml:"channel" validate:"min=1,max=14"`
    // Address overrides the radio address ("aa:bb:cc:dd:ee:ff"); derived from node_name when empty
    Address   string   `mapstructure:"address" yaml:"address,omitempty"`
    Listen    string   `mapstructure:"listen" yaml:"listen"`
    Broadcast []string `mapstructure:"broadcast" yaml:"broadcast"`
    // QueueSize is the receive handoff depth
    QueueSize int `mapstructure:"queue_size" yaml:"queue_size" validate:"min=1,max=1024"`
    // QueuePolicy: block or drop_oldest
    QueuePolicy string `mapstructure:"queue_policy" yaml:"queue_policy" validate:"oneof=block drop_oldest"`
}

// SerialConfig describes the beacon <-> gateway byte link.
// Example YAML:
// serial:
//   kind: serial
//   device: /dev/ttyUSB0
//   baud: 115200
// or
// serial:
//   kind: tcp-listen
//   address: "127.0.0.1:5555"
type SerialConfig struct {
    // Kind: serial, tcp, tcp-listen, pipe, pipe-listen, stdio
    Kind    string `mapstructure:"kind" yaml:"kind" validate:"oneof=serial tcp tcp-listen pipe pipe-listen stdio"`
    Device  string `mapstructure:"device" yaml:"device,omitempty" validate:"required_if=Kind serial"`
    Baud    int    `mapstructure:"baud" yaml:"baud" validate:"min=0"`
    Address string `mapstructure:"address" yaml:"address,omitempty" validate:"required_if=Kind tcp,required_if=Kind tcp-listen,required_if=Kind pipe,required_if=Kind pipe-listen"`
}
