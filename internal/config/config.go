package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"jobline/internal/domain"
)

// Config models jobline.yml.
type Config struct {
	Service struct {
		// LinkHost is the public host magic links point at.
		LinkHost string `yaml:"link_host" json:"link_host"`
	} `yaml:"service" json:"service"`
	Checklist struct {
		Template []ChecklistTemplateItem `yaml:"template" json:"template"`
	} `yaml:"checklist" json:"checklist"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
		// AccessRatePerMinute limits GET /access/{token} across all callers.
		AccessRatePerMinute int `yaml:"access_rate_per_minute" json:"access_rate_per_minute"`
	} `yaml:"server" json:"server"`
	Materials LLMConfig       `yaml:"materials" json:"materials"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Webhooks  []WebhookConfig `yaml:"webhooks" json:"webhooks"`
}

type ChecklistTemplateItem struct {
	ID       string       `yaml:"id" json:"id"`
	Phase    domain.Phase `yaml:"phase" json:"phase"`
	Label    string       `yaml:"label" json:"label"`
	Required bool         `yaml:"required" json:"required"`
}

// LLMConfig configures the material suggestion collaborator. An empty
// Provider disables it.
type LLMConfig struct {
	Provider          string `yaml:"provider" json:"provider"`
	BaseURL           string `yaml:"base_url" json:"base_url"`
	Model             string `yaml:"model" json:"model"`
	APIKeyEnv         string `yaml:"api_key_env" json:"api_key_env"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ExportConfig configures the S3-compatible sink for report exports. An
// empty Endpoint disables uploads.
type ExportConfig struct {
	Endpoint       string `yaml:"endpoint" json:"endpoint"`
	Bucket         string `yaml:"bucket" json:"bucket"`
	AccessKeyEnv   string `yaml:"access_key_env" json:"access_key_env"`
	SecretKeyEnv   string `yaml:"secret_key_env" json:"secret_key_env"`
	UseSSL         bool   `yaml:"use_ssl" json:"use_ssl"`
	PresignMinutes int    `yaml:"presign_minutes" json:"presign_minutes"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events" json:"events"`
	Secret         string   `yaml:"secret" json:"secret"`
	Enabled        *bool    `yaml:"enabled" json:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with jl init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.LinkHost) == "" {
		return fmt.Errorf("config.service.link_host is required")
	}
	if strings.Contains(c.Service.LinkHost, "/") {
		return fmt.Errorf("config.service.link_host must be a bare host, got %q", c.Service.LinkHost)
	}
	if len(c.Checklist.Template) == 0 {
		return fmt.Errorf("config.checklist.template must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Checklist.Template))
	for i, item := range c.Checklist.Template {
		if item.ID == "" {
			return fmt.Errorf("checklist item %d has empty id", i)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("checklist item id %s is duplicated", item.ID)
		}
		seen[item.ID] = struct{}{}
		if !item.Phase.Valid() {
			return fmt.Errorf("checklist item %s has invalid phase %q", item.ID, item.Phase)
		}
		if strings.TrimSpace(item.Label) == "" {
			return fmt.Errorf("checklist item %s has empty label", item.ID)
		}
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("config.log.format must be json or console")
	}
	if c.Server.AccessRatePerMinute < 0 {
		return fmt.Errorf("config.server.access_rate_per_minute must be >= 0")
	}
	switch c.Materials.Provider {
	case "":
	case "openai":
		if c.Materials.Model == "" {
			return fmt.Errorf("config.materials.model is required for provider openai")
		}
	default:
		return fmt.Errorf("config.materials.provider %q not supported", c.Materials.Provider)
	}
	if c.Export.Endpoint != "" && c.Export.Bucket == "" {
		return fmt.Errorf("config.export.bucket is required when endpoint is set")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "jobline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(linkHost string) string {
	return fmt.Sprintf(defaultTemplate, linkHost)
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

// Default returns the default Config struct.
func Default(linkHost string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(linkHost))).Decode(&cfg)
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

const defaultTemplate = `service:
  link_host: %s

checklist:
  template:
    - id: start.access
      phase: Start
      label: "Verify access and site safety"
      required: true
    - id: start.photos
      phase: Start
      label: "Take before photos"
      required: true
    - id: start.protect
      phase: Start
      label: "Protect floors and surfaces"
      required: false
    - id: exec.work
      phase: Execution
      label: "Perform the agreed work"
      required: true
    - id: exec.materials
      phase: Execution
      label: "Log materials used"
      required: false
    - id: exec.deviations
      phase: Execution
      label: "Notify owner of deviations"
      required: false
    - id: close.cleanup
      phase: Closeout
      label: "Clean up the work area"
      required: true
    - id: close.photos
      phase: Closeout
      label: "Take after photos"
      required: true

log:
  level: info
  format: console

server:
  addr: ":8080"
  base_path: /v0
  access_rate_per_minute: 120

materials:
  provider: ""
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  timeout_seconds: 20
  requests_per_minute: 30

export:
  endpoint: ""
  bucket: jobline-exports
  access_key_env: JOBLINE_EXPORT_ACCESS_KEY
  secret_key_env: JOBLINE_EXPORT_SECRET_KEY
  use_ssl: true
  presign_minutes: 60
`
