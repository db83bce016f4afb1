package tsdb_exporter

import (
	"slices"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/registry"
)

const TimestampLayout = "2006-01-02 15:04:05"

// LiveSnapshot is the farm-wide view written to the live file.
type LiveSnapshot struct {
	Timestamp string                   `json:"timestamp"`
	Nodes     map[string]node.Snapshot `json:"nodes"`

	takenAt time.Time
}

// TakenAt is the clock reading the snapshot was collected at.
func (s LiveSnapshot) TakenAt() time.Time { return s.takenAt }

// Collect snapshots every registered node. Sensors are sampled in the process.
func Collect(reg *registry.Registry, now time.Time) LiveSnapshot {
	nodes := make(map[string]node.Snapshot, reg.Len())
	for _, n := range reg.Enumerate() {
		nodes[n.ID()] = n.Snapshot()
	}
	return LiveSnapshot{
		Timestamp: now.Format(TimestampLayout),
		Nodes:     nodes,
		takenAt:   now,
	}
}

// Row is one CSV history line.
type Row struct {
	Timestamp  string   `json:"timestamp"`
	NodeID     string   `json:"node_id"`
	DeviceID   string   `json:"device_id"`
	DeviceName string   `json:"device_name"`
	Value      *float64 `json:"value"`
	Pin        string   `json:"pin"`
}

// Rows flattens the sensor readings of s, ordered by node then sensor id.
func (s LiveSnapshot) Rows() []Row {
	var rows []Row
	for _, id := range s.nodeIDs() {
		for _, st := range s.Nodes[id].Sensors {
			rows = append(rows, Row{
				Timestamp:  s.Timestamp,
				NodeID:     id,
				DeviceID:   st.ID,
				DeviceName: st.Name,
				Value:      st.Value,
				Pin:        st.Pin,
			})
		}
	}
	return rows
}

func (s LiveSnapshot) nodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
