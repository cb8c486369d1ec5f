package model

// ComponentStatus is the readiness of one dependency
type ComponentStatus struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// StatusResponse is returned by /status
type StatusResponse struct {
	Status      string          `json:"status"`
	Environment string          `json:"environment"`
	Storage     ComponentStatus `json:"storage"`
	Queue       ComponentStatus `json:"queue"`
	Jobs        int             `json:"jobs"`
}
