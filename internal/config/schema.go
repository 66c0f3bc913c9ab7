package config

// Config is the top-level YAML structure.
type Config struct {
	Version  string       `yaml:"version" validate:"required"`
	Server   ServerConf   `yaml:"server"`
	Upstream UpstreamConf `yaml:"upstream"`
	Grid     GridConf     `yaml:"grid"`
}

// ServerConf holds listener and logging settings.
type ServerConf struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// UpstreamConf points at the event-management API.
type UpstreamConf struct {
	BaseURL   string `yaml:"base_url" validate:"required,url,startswith=http"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"` // 0 = bounded by the request context only
}

// GridConf holds the fallbacks used when the grid widget omits a parameter.
type GridConf struct {
	DefaultPageSize      int    `yaml:"default_page_size" validate:"gte=1"`
	DefaultSortColumn    string `yaml:"default_sort_column" validate:"required"`
	DefaultSortDirection string `yaml:"default_sort_direction" validate:"oneof=asc desc"`
}
