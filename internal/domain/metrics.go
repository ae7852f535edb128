package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Sample is one metrics report pushed by a server agent.
type Sample struct {
	ID             int64           `db:"id" json:"-"`
	ServerID       int64           `db:"server_id" json:"server_id"`
	CPU            float64         `db:"cpu_usage" json:"cpu_usage"`
	RAM            float64         `db:"ram_usage" json:"ram_usage"`
	Disk           float64         `db:"disk_usage" json:"disk_usage"`
	Load1          float64         `db:"load_avg_1m" json:"load_avg_1m"`
	Load5          float64         `db:"load_avg_5m" json:"load_avg_5m"`
	Load15         float64         `db:"load_avg_15m" json:"load_avg_15m"`
	RAMTotalMB     float64         `db:"ram_total_mb" json:"ram_total_mb"`
	Swap           float64         `db:"swap_usage" json:"swap_usage"`
	DiskWait       float64         `db:"disk_wait" json:"disk_wait"`
	DiskReadBytes  int64           `db:"disk_read_bytes" json:"disk_read_bytes"`
	DiskWriteBytes int64           `db:"disk_write_bytes" json:"disk_write_bytes"`
	NetInBytes     int64           `db:"network_in_bytes" json:"network_in_bytes"`
	NetOutBytes    int64           `db:"network_out_bytes" json:"network_out_bytes"`
	UptimeSeconds  int64           `db:"uptime_seconds" json:"uptime_seconds"`
	OpenFiles      int64           `db:"open_files" json:"open_files"`
	ZombieProcs    int64           `db:"zombie_procs" json:"zombie_procs"`
	TopProc        json.RawMessage `db:"top_proc" json:"top_proc,omitempty"`
	FailedServices json.RawMessage `db:"failed_services" json:"failed_services,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Snapshot is the current reading plus a bounded window of recent samples.
type Snapshot struct {
	ServerID   int64
	ServerName string
	Current    *Sample
	History    []Sample
}

// Stats aggregates one dimension over a window. An empty window yields
// zero values with Samples == 0.
type Stats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Samples int     `json:"samples"`
}

// Empty reports whether the window had no samples.
func (s Stats) Empty() bool { return s.Samples == 0 }

// Reading is the latest values shown to the language model.
type Reading struct {
	CPU         float64 `json:"cpu"`
	RAM         float64 `json:"ram"`
	Disk        float64 `json:"disk"`
	Load1       float64 `json:"load_1m"`
	Load5       float64 `json:"load_5m"`
	Load15      float64 `json:"load_15m"`
	UptimeDays  int64   `json:"uptime_days"`
	ZombieProcs int64   `json:"zombie_procs"`
}

// Summary is the frozen view of a server an analysis session reasons about.
type Summary struct {
	ServerID   int64   `json:"server_id"`
	ServerName string  `json:"server_name"`
	Current    Reading `json:"current"`
	CPU        Stats   `json:"cpu"`
	RAM        Stats   `json:"ram"`
	Disk       Stats   `json:"disk"`
}

// Summarize derives per-dimension statistics from a snapshot.
func Summarize(snap Snapshot) Summary {
	sum := Summary{
		ServerID:   snap.ServerID,
		ServerName: snap.ServerName,
		CPU:        statsOf(snap.History, func(s Sample) float64 { return s.CPU }),
		RAM:        statsOf(snap.History, func(s Sample) float64 { return s.RAM }),
		Disk:       statsOf(snap.History, func(s Sample) float64 { return s.Disk }),
	}
	if sum.ServerName == "" {
		sum.ServerName = "Unknown"
	}
	if c := snap.Current; c != nil {
		sum.Current = Reading{
			CPU:         c.CPU,
			RAM:         c.RAM,
			Disk:        c.Disk,
			Load1:       c.Load1,
			Load5:       c.Load5,
			Load15:      c.Load15,
			UptimeDays:  c.UptimeSeconds / 86400,
			ZombieProcs: c.ZombieProcs,
		}
	}
	return sum
}

func statsOf(window []Sample, pick func(Sample) float64) Stats {
	if len(window) == 0 {
		return Stats{}
	}
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1), Samples: len(window)}
	var total float64
	for _, s := range window {
		v := pick(s)
		st.Min = min(st.Min, v)
		st.Max = max(st.Max, v)
		total += v
	}
	st.Avg = math.Round(total/float64(len(window))*10) / 10
	return st
}
