package config

import "sort"

var Presets = map[string]func(*Config){
	"preview": func(c *Config) {
		c.Resolution = 0.02
		c.Plot.Width, c.Plot.Height = 600, 400
		c.Duration = 0.2
	},
	"float": func(c *Config) {
		c.Format = "float"
	},
	"double": func(c *Config) {
		c.Format = "double"
	},
	"hires": func(c *Config) {
		c.Resolution = 1
		c.Plot.Width, c.Plot.Height = 1600, 1000
		c.Duration = 0.05
	},
	"general": func(c *Config) {
		c.Estimator.Method = "general"
		c.Generate.Samples = 64
	},
}

// GetPreset returns the default config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
