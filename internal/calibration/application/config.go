package application

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines calibration ingestion configuration.
type Config struct {
	DatabaseURL    string            `yaml:"database_url"`
	Workbook       string            `yaml:"workbook"`
	FlatWorkbook   string            `yaml:"flat_workbook"`
	DefaultChannel string            `yaml:"default_channel"`
	PushgatewayURL string            `yaml:"pushgateway_url"`
	ReportFont     string            `yaml:"report_font"`
	Aliases        map[string]string `yaml:"aliases"`
	Tables         TableConfig       `yaml:"tables"`
}

// TableConfig overrides table names.
type TableConfig struct {
	Channels string `yaml:"channels"`
	Points   string `yaml:"points"`
}

// LoadConfig loads config from env, then overlays the yaml file named by CALIBRATION_CONFIG.
func LoadConfig() (Config, error) {
	cfg := Config{
		DatabaseURL:    getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		Workbook:       getenvDefault("CALIBRATION_WORKBOOK", "kanal_abaklar.xlsx"),
		FlatWorkbook:   getenvDefault("CALIBRATION_FLAT_WORKBOOK", "kanal_abak.xlsx"),
		DefaultChannel: getenvDefault("CALIBRATION_DEFAULT_CHANNEL", "ÇELTEK"),
		PushgatewayURL: os.Getenv("CALIBRATION_PUSHGATEWAY_URL"),
		ReportFont:     os.Getenv("CALIBRATION_REPORT_FONT"),
	}

	if path := os.Getenv("CALIBRATION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if len(cfg.Aliases) == 0 {
		cfg.Aliases = DefaultAliases()
	}
	return cfg, nil
}

// AliasTable returns the configured sheet-label aliases.
func (c Config) AliasTable() AliasTable {
	return NewAliasTable(c.Aliases)
}

// DefaultAliases is the built-in sheet label to channel-name fragment table.
func DefaultAliases() map[string]string {
	return map[string]string{
		"çeltek regülatörü":              "ÇELTEK REGÜLATÖRÜ İLETİM",
		"Çeltek Regülatörü":              "ÇELTEK REGÜLATÖRÜ İLETİM",
		"Sheet1":                         "ÇELTEK REGÜLATÖRÜ İLETİM",
		"Suluova Solsahil S1 Ana Kanalı": "SULUOVA SOLSAHIL S1 ANA KANALI",
		"Suluova Solsahil S2 Ana Kanalı": "SULUOVA SOLSAHIL S2 ANA KANALI",
		"Suluova Sağsahil S2 Ana Kanalı": "SULUOVA SAĞSAHIL S2 ANA KANALI",
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
