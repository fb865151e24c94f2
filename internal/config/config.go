// internal/config/config.go
package config

type Config struct {
	Simulator SimulatorConfig `yaml:"simulator"`
}

type SimulatorConfig struct {
	Handler      HandlerConfig       `yaml:"handler"`
	Device       DeviceConfig        `yaml:"device"`
	Listen       ListenConfig        `yaml:"listen"`
	Poll         PollConfig          `yaml:"poll"`
	StatusMemory *StatusMemoryConfig `yaml:"status_memory"` // optional
}

// ---- HANDLER ENGINE ----

type HandlerConfig struct {
	Sites            int    `yaml:"sites"`
	SiteEnabledMask  int64  `yaml:"site_enabled_mask"` // 0 or -1 => all sites
	AutoSetupDelayMs int    `yaml:"auto_setup_delay_ms"`
	HandlingDelayMs  int    `yaml:"handling_delay_ms"`
	DevicesToTest    int    `yaml:"devices_to_test"` // -1 => continuous
	Pattern          string `yaml:"pattern"`         // all | one
	ReprobeMode      string `yaml:"reprobe_mode"`    // ignore | separate | add
	CorruptBinData   bool   `yaml:"corrupt_bin_data"`
	MaxVerifyCount   int    `yaml:"max_verify_count"`

	// Reserved categories (optional, engine defaults otherwise)
	RetestCategory  *int `yaml:"retest_category"`
	ReprobeCategory *int `yaml:"reprobe_category"`
}

// ---- DEVICE PERSONALITY ----

type DeviceConfig struct {
	Model           string `yaml:"model"`
	SoftwareVersion string `yaml:"software_version"`
	Terminator      string `yaml:"terminator"` // lf | crlf
	SRQMask         *uint8 `yaml:"srq_mask"`
	QueryError      bool   `yaml:"query_error"` // corrupt every 7th query reply
	CommandReply    bool   `yaml:"cmd_reply"`
	AutoStart       bool   `yaml:"auto_start"`
}

// ---- COMMAND LINK ----

type ListenConfig struct {
	Address string `yaml:"address"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- STATUS MEMORY (Modbus mirror) ----

type StatusMemoryConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	BaseSlot  uint16 `yaml:"base_slot"`
	TimeoutMs int    `yaml:"timeout_ms"`
}
