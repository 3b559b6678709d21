package openapi

import "strings"

const (
	defaultRootComponent = "Settings"
	defaultBasePath      = "/settings"
	mediaTypeJSON        = "application/json"
)

type config struct {
	openapi       string
	title         string
	version       string
	description   string
	basePath      string
	rootComponent string
}

func defaultConfig() config {
	return config{
		openapi:       "3.0.3",
		title:         "Render Settings",
		version:       "1.0.0",
		basePath:      defaultBasePath,
		rootComponent: defaultRootComponent,
	}
}

// Option configures the generator.
type Option func(*config)

// WithOpenAPIVersion sets the openapi field (default 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *config) {
		if version != "" {
			cfg.openapi = version
		}
	}
}

// WithInfo sets info.title and info.version. Empty arguments keep the
// defaults.
func WithInfo(title, version string) Option {
	return func(cfg *config) {
		if title != "" {
			cfg.title = title
		}
		if version != "" {
			cfg.version = version
		}
	}
}

// WithDescription sets info.description.
func WithDescription(description string) Option {
	return func(cfg *config) {
		cfg.description = strings.TrimSpace(description)
	}
}

// WithBasePath moves the settings endpoints (default /settings).
func WithBasePath(path string) Option {
	return func(cfg *config) {
		path = "/" + strings.Trim(path, "/")
		if path != "/" {
			cfg.basePath = path
		}
	}
}

// WithRootComponent names the component holding the whole settings object
// (default Settings). Section components are prefixed with it.
func WithRootComponent(name string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(name) != "" {
			cfg.rootComponent = name
		}
	}
}
