package taskbar

// TaskInfo is the read-only view of one task published on the bus and
// served by the introspection API.
type TaskInfo struct {
	Window    uint32 `json:"window"`
	Name      string `json:"name"`
	Desktop   uint32 `json:"desktop"`
	Sticky    bool   `json:"sticky"`
	Iconified bool   `json:"iconified"`
	Urgent    bool   `json:"urgent"`
	Focused   bool   `json:"focused"`
	Visible   bool   `json:"visible"`
}

type EventTasksChanged struct {
	Tasks []TaskInfo `json:"tasks"`
}

type EventFocusChanged struct {
	Window uint32 `json:"window"`
}
