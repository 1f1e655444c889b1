package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models teamline.yml.
type Config struct {
	Company struct {
		Name string `yaml:"name"`
	} `yaml:"company"`
	Leave struct {
		DefaultBalance int      `yaml:"default_balance"`
		Types          []string `yaml:"types"`
	} `yaml:"leave"`
	Departments []string `yaml:"departments"`
	Attendance  struct {
		FullDayHours float64 `yaml:"full_day_hours"`
	} `yaml:"attendance"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with tl config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Company.Name == "" {
		return fmt.Errorf("config.company.name is required")
	}
	if c.Leave.DefaultBalance < 0 {
		return fmt.Errorf("config.leave.default_balance must not be negative")
	}
	if len(c.Leave.Types) == 0 {
		return fmt.Errorf("config.leave.types is required")
	}
	for _, t := range c.Leave.Types {
		if t == "" {
			return fmt.Errorf("config.leave.types contains an empty type")
		}
	}
	for _, d := range c.Departments {
		if d == "" {
			return fmt.Errorf("config.departments contains an empty department")
		}
	}
	if c.Attendance.FullDayHours <= 0 {
		return fmt.Errorf("config.attendance.full_day_hours must be positive")
	}
	return nil
}

// LeaveType reports whether t is a configured leave type.
func (c *Config) LeaveType(t string) bool {
	for _, known := range c.Leave.Types {
		if known == t {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "teamline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(companyName string) string {
	return fmt.Sprintf(defaultTemplate, companyName)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a company.
func Default(companyName string) *Config {
	var cfg Config
	cfg.Company.Name = companyName
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, companyName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `company:
  name: %s

leave:
  default_balance: 20
  types:
    - sick
    - vacation
    - personal
    - maternity
    - paternity
    - emergency

departments:
  - engineering
  - design
  - sales
  - hr
  - finance

attendance:
  full_day_hours: 8
`
