package config

import "sort"

// Profiles are named engine tunings layered over DefaultConfig.
var Profiles = map[string]func(*Config){
	"default": func(*Config) {},
	"fast": func(c *Config) {
		c.Engine.SubSteps = 1
	},
	"precise": func(c *Config) {
		c.Engine.SubSteps = 4
	},
	"moon": func(c *Config) {
		c.Engine.GravityScale = 0.165
	},
	"zero-g": func(c *Config) {
		c.Engine.GravityScale = 0
		c.Run.Preset = "explosion"
	},
	"slippery": func(c *Config) {
		c.Engine.FrictionScale = 0.1
	},
	"loose": func(c *Config) {
		c.Engine.Cohesion = false
	},
	"ghost": func(c *Config) {
		c.Engine.Collisions = false
		c.Engine.Cohesion = false
	},
	"sandstorm": func(c *Config) {
		c.Run.Preset = "dunes"
		c.Emitter.Enabled = true
		c.Emitter.Rate = 20
		c.Emitter.Spread = 8
	},
}

// GetProfile returns DefaultConfig with the named profile applied, or nil
// if there is no such profile.
func GetProfile(name string) *Config {
	apply, ok := Profiles[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListProfiles() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
