package domain

import "time"

type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusPending Status = "pending"
)

// StatusMeta describes a (config, location) pair that resolved to up or down.
type StatusMeta struct {
	Status         Status    `json:"status"`
	ConfigID       ConfigID  `json:"configId"`
	MonitorQueryID MonitorID `json:"monitorQueryId"`
	Location       string    `json:"location"`
	Timestamp      time.Time `json:"timestamp"`
	Ping           Ping      `json:"ping"`
}

// PendingMeta describes a pair with no usable observation in range.
type PendingMeta struct {
	Status         Status    `json:"status"`
	ConfigID       ConfigID  `json:"configId"`
	MonitorQueryID MonitorID `json:"monitorQueryId"`
	Location       string    `json:"location"`
}

// OverviewReport is keyed by "{ConfigID}-{Location}". Every key appears in
// exactly one of the three maps.
type OverviewReport struct {
	Up                     int                    `json:"up"`
	Down                   int                    `json:"down"`
	Pending                int                    `json:"pending"`
	UpConfigs              map[string]StatusMeta  `json:"upConfigs"`
	DownConfigs            map[string]StatusMeta  `json:"downConfigs"`
	PendingConfigs         map[string]PendingMeta `json:"pendingConfigs"`
	EnabledMonitorQueryIDs []MonitorID            `json:"enabledMonitorQueryIds"`
}

// StatusKey builds the external key for a (config, location) pair.
func StatusKey(id ConfigID, location string) string {
	return string(id) + "-" + location
}
