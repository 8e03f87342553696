package config

import "github.com/google/uuid"

func Default() Config {
	return Config{
		Panel: Panel{
			Edge:         "bottom",
			Size:         28,
			WidthPercent: 100,
		},
		Taskbar: Taskbar{
			ShowIconified:  true,
			ShowMapped:     true,
			Tooltips:       true,
			UseMouseWheel:  true,
			UseUrgencyHint: true,
			MaxTaskWidth:   150,
			MaxTaskHeight:  26,
			IconSize:       24,
		},
		Memchart: Memchart{
			IntervalMs: 2000,
			Samples:    64,
		},
	}
}

type Config struct {
	Panel    Panel    `yaml:"panel"`
	Taskbar  Taskbar  `yaml:"taskbar"`
	Launch   []Button `yaml:"launchbar"`
	Memchart Memchart `yaml:"memchart"`
}

type Panel struct {
	Edge         string `yaml:"edge"` // top, bottom, left, right
	Size         int    `yaml:"size"`
	WidthPercent int    `yaml:"width_percent"`
}

func (p Panel) Horizontal() bool {
	return p.Edge != "left" && p.Edge != "right"
}

type Taskbar struct {
	ShowAllDesktops bool `yaml:"show_all_desktops"`
	ShowIconified   bool `yaml:"show_iconified"`
	ShowMapped      bool `yaml:"show_mapped"`
	AcceptSkipPager bool `yaml:"accept_skip_pager"`
	Tooltips        bool `yaml:"tooltips"`
	UseMouseWheel   bool `yaml:"use_mouse_wheel"`
	UseUrgencyHint  bool `yaml:"use_urgency_hint"`
	MaxTaskWidth    int  `yaml:"max_task_width"`
	MaxTaskHeight   int  `yaml:"max_task_height"`
	IconSize        int  `yaml:"icon_size"`
}

type Button struct {
	UUID    string `yaml:"uuid"`
	Icon    string `yaml:"icon"`
	Command string `yaml:"command"`
	Tooltip string `yaml:"tooltip"`
}

type Memchart struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
	Samples    int  `yaml:"samples"`
}

// Normalize assigns stable IDs to launcher buttons that lack one.
func Normalize(store Store) error {
	return store.UpdateConfig(func(cfg Config) (Config, error) {
		for i := range cfg.Launch {
			if cfg.Launch[i].UUID == "" {
				cfg.Launch[i].UUID = uuid.NewString()
			}
		}
		return cfg, nil
	})
}
