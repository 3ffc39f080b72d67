// Package config loads service configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"
	_ "time/tzdata" // location names resolve without system zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fund-strategy-lab/internal/chart"
	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/form"
)

// Config is the full service configuration.
type Config struct {
	Addr          string `yaml:"addr"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"`
	Seed          bool   `yaml:"seed"`

	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`

	// Location is an IANA zone name used for day boundaries.
	Location string            `yaml:"location"`
	Blocked  []string          `yaml:"blocked"`
	Labels   map[string]string `yaml:"labels"`
	Chart    Chart             `yaml:"chart"`
}

// Chart holds the compare chart display settings.
type Chart struct {
	Title    string           `yaml:"title"`
	SubTitle string           `yaml:"sub_title"`
	Common   chart.CommonProp `yaml:"common"`
	Legend   chart.LegendProp `yaml:"legend"`
}

// DefaultLabels are the display names of the metric keys and series.
var DefaultLabels = map[string]string{
	string(domain.MetricTotalAmount):       "Total assets",
	string(domain.MetricLeftAmount):        "Remaining cash",
	string(domain.MetricProfitRate):        "Holding return",
	string(domain.MetricProfit):            "Holding profit",
	string(domain.MetricFundAmount):        "Fund holdings",
	string(domain.MetricFundGrowthRate):    "Fund growth rate",
	string(domain.MetricMaxPrincipal):      "Max principal",
	string(domain.MetricAccumulatedProfit): "Accumulated profit",
	string(domain.MetricTotalProfitRate):   "Total return",
	string(domain.MetricPosition):          "Position",
	domain.SeriesAvgPos:                    "Average position",
	domain.SeriesMaxPos:                    "Max position",
	"profitPerInvest":                      "Profit per investment",
	"profitAmountPerPos":                   "Profit per position",
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Location: "UTC",
		Labels:   maps.Clone(DefaultLabels),
		Chart: Chart{
			Title: "Position comparison",
			Common: chart.CommonProp{
				Width:  640,
				Height: 360,
				Colors: slices.Clone(chart.DefaultColors),
			},
			Legend: chart.LegendProp{Position: "top"},
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
// Labels in the file are merged into the default labels.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	cfg.merge(file)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.PostgresDSN != "" {
		c.PostgresDSN = o.PostgresDSN
	}
	if o.ClickhouseDSN != "" {
		c.ClickhouseDSN = o.ClickhouseDSN
	}
	c.UseMemory = c.UseMemory || o.UseMemory
	c.Seed = c.Seed || o.Seed
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	c.Development = c.Development || o.Development
	if o.Location != "" {
		c.Location = o.Location
	}
	if o.Blocked != nil {
		c.Blocked = o.Blocked
	}
	for k, v := range o.Labels {
		c.Labels[k] = v
	}
	if o.Chart.Title != "" {
		c.Chart.Title = o.Chart.Title
	}
	if o.Chart.SubTitle != "" {
		c.Chart.SubTitle = o.Chart.SubTitle
	}
	if o.Chart.Common.Width > 0 {
		c.Chart.Common.Width = o.Chart.Common.Width
	}
	if o.Chart.Common.Height > 0 {
		c.Chart.Common.Height = o.Chart.Common.Height
	}
	if o.Chart.Common.Padding != [4]int{} {
		c.Chart.Common.Padding = o.Chart.Common.Padding
	}
	if len(o.Chart.Common.Colors) > 0 {
		c.Chart.Common.Colors = o.Chart.Common.Colors
	}
	if o.Chart.Legend.Position != "" {
		c.Chart.Legend.Position = o.Chart.Legend.Position
	}
	c.Chart.Legend.Hidden = c.Chart.Legend.Hidden || o.Chart.Legend.Hidden
}

// Validate checks values that would otherwise fail at first use.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Location); err != nil {
		return fmt.Errorf("invalid location %q: %w", c.Location, err)
	}
	switch c.Chart.Legend.Position {
	case "", "top", "bottom", "left", "right":
	default:
		return fmt.Errorf("invalid legend position %q", c.Chart.Legend.Position)
	}
	if c.Chart.Common.Width < 0 || c.Chart.Common.Height < 0 {
		return errors.New("chart width and height must not be negative")
	}
	return nil
}

// FormConfig returns the search form settings.
func (c Config) FormConfig() (form.Config, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return form.Config{}, fmt.Errorf("invalid location %q: %w", c.Location, err)
	}
	return form.Config{Blocked: c.Blocked, Labels: c.Labels, Location: loc}, nil
}

// ChartConfig returns the renderer settings. Series labels come from Labels.
func (c Config) ChartConfig() chart.Config {
	return chart.Config{
		Title:    c.Chart.Title,
		SubTitle: c.Chart.SubTitle,
		TextMap:  c.Labels,
		Common:   c.Chart.Common,
		Legend:   c.Chart.Legend,
	}
}

// LoadEnv loads .env files into the process environment without overriding set variables.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// EnvOr returns the environment variable key, or def when unset or empty.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvBool parses a boolean environment variable, returning def when unset or malformed.
func EnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
