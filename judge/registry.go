package judge

import "fmt"

// SettingDef describes a judge setting.
type SettingDef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Def describes an available judge type.
type Def struct {
	ID       string                                          `json:"id"`
	Name     string                                          `json:"name"`
	Settings []SettingDef                                    `json:"settings"`
	Build    func(settings map[string]string) (Judge, error) `json:"-"`
}

var registry []Def

// Register adds a judge definition to the registry.
// Called from init() in judge implementation files.
func Register(d Def) {
	registry = append(registry, d)
}

// Defs returns all registered judge definitions.
func Defs() []Def {
	return registry
}

// Lookup returns the definition registered under id.
func Lookup(id string) (Def, bool) {
	for _, d := range registry {
		if d.ID == id {
			return d, true
		}
	}
	return Def{}, false
}

// Build creates a Judge from a judge type ID and settings.
func Build(id string, settings map[string]string) (Judge, error) {
	d, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown judge: %s", id)
	}
	for _, s := range d.Settings {
		if s.Required && settings[s.ID] == "" {
			return nil, fmt.Errorf("%s: %s is required", d.Name, s.Name)
		}
	}
	return d.Build(settings)
}
