package domain

import "time"

// Node statuses as observed from the compute backend. The registry caches
// the most recently observed value; "unknown" is the sentinel used when a
// backend lookup fails.
const (
	StatusStopped = "stopped"
	StatusRunning = "running"
	StatusUnknown = "unknown"
)

// Node represents one managed compute node record. The registry is the
// authoritative owner of these rows; ContainerID is immutable once created.
type Node struct {
	ContainerID string `json:"container_id"`
	OwnerID     string `json:"owner_id"`

	// Spec fields describing the underlying instance.
	Name     string `json:"name"`
	RAM      string `json:"ram,omitempty"`
	CPUCores int    `json:"cpu_cores,omitempty"`
	Storage  string `json:"storage,omitempty"`
	Location string `json:"location,omitempty"`
	OSImage  string `json:"os_image,omitempty"`

	// Lifecycle state. Suspended is an administrative hold independent of
	// the backend status. PurgeProtected is a materialized view of the
	// protection table and is only ever written by the protection manager.
	Status         string `json:"status"`
	Suspended      bool   `json:"suspended"`
	Whitelisted    bool   `json:"whitelisted"`
	PurgeProtected bool   `json:"purge_protected"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	// LastAccessed is bumped by status checks and management actions.
	// A zero value means the node has never been accessed since creation.
	LastAccessed time.Time `json:"last_accessed,omitzero"`

	Notes      string   `json:"notes,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	BackupPath string   `json:"backup_path,omitempty"`
}

// Usage is a read-only telemetry snapshot for a node. It is never an input
// to purge eligibility.
type Usage struct {
	CPUPct       float64 `json:"cpu_pct"`
	Memory       string  `json:"memory"`
	Disk         string  `json:"disk"`
	NetworkRx    int64   `json:"network_rx"`
	NetworkTx    int64   `json:"network_tx"`
	ProcessCount int     `json:"process_count"`
}
