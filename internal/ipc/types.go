package ipc

// Request and response payloads for the daemon control service. Keep these
// flat and JSON-friendly; they cross the socket, not package boundaries.

type StartRequest struct{}

type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

type StopRequest struct{}

type StopResponse struct {
	Stopped bool `json:"stopped"`
}

type StatusRequest struct {
	// IncludeRaw attaches the last raw payload per state record kind.
	IncludeRaw bool `json:"include_raw"`
}

type NavigatorStatus struct {
	State       string `json:"state"`
	Container   string `json:"container,omitempty"`
	Entity      string `json:"entity,omitempty"`
	Property    string `json:"property,omitempty"`
	EntityCount int    `json:"entity_count"`
}

type StatusResponse struct {
	Running        bool              `json:"running"`
	PID            int               `json:"pid"`
	EngineRunning  bool              `json:"engine_running"`
	RunID          string            `json:"run_id,omitempty"`
	Ticks          uint64            `json:"ticks"`
	LastTick       string            `json:"last_tick,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	Navigator      NavigatorStatus   `json:"navigator"`
	LockPath       string            `json:"lock_path"`
	MappingDBPath  string            `json:"mapping_db_path"`
	DeviceMonitor  bool              `json:"device_monitor"`
	DeviceAttached bool              `json:"device_attached"`
	Raw            map[string]string `json:"raw,omitempty"`
}

type ResetRequest struct{}

type ResetResponse struct {
	Reset bool `json:"reset"`
}

type MappingListRequest struct{}

type MappingListResponse struct {
	Identities []string `json:"identities"`
}

type MappingAssignment struct {
	Button       int    `json:"button"`
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name,omitempty"`
}

type MappingShowRequest struct {
	Identity string `json:"identity"`
}

type MappingShowResponse struct {
	Identity    string              `json:"identity"`
	Assignments []MappingAssignment `json:"assignments"`
}

type MappingAssignRequest struct {
	Identity     string `json:"identity"`
	Button       int    `json:"button"`
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name,omitempty"`
}

type MappingAssignResponse struct {
	Assigned bool `json:"assigned"`
}

type MappingUnassignRequest struct {
	Identity string `json:"identity"`
	Button   int    `json:"button"`
}

type MappingUnassignResponse struct {
	Removed bool `json:"removed"`
}

type MappingExportRequest struct {
	Identity string `json:"identity"`
	Path     string `json:"path"`
}

type MappingExportResponse struct {
	Path string `json:"path"`
}

type MappingImportRequest struct {
	Path string `json:"path"`
}

type MappingImportResponse struct {
	Identity    string `json:"identity"`
	Assignments int    `json:"assignments"`
}
