package tsdb_exporter

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/pkg/errors"
)

var csvHeader = []string{"timestamp", "node_id", "device_id", "device_name", "value", "pin"}

// AppendHistory appends rows to the CSV file at path, writing the header
// first when the file is new or empty.
func AppendHistory(path string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	f, created, err := utilities.OpenAppend(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	return writeHistory(f, created, rows)
}

// writeHistory writes rows as CSV and closes wc. A failed close is reported
// when nothing failed before it.
func writeHistory(wc io.WriteCloser, header bool, rows []Row) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close csv")
		}
	}()

	w := csv.NewWriter(wc)
	if header {
		if err := w.Write(csvHeader); err != nil {
			return errors.Wrap(err, "write csv header")
		}
	}
	for _, r := range rows {
		value := ""
		if r.Value != nil {
			value = strconv.FormatFloat(*r.Value, 'f', -1, 64)
		}
		if err := w.Write([]string{r.Timestamp, r.NodeID, r.DeviceID, r.DeviceName, value, r.Pin}); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// ReadHistory returns the rows of the CSV file at path whose timestamp starts
// with prefix (e.g. a "2006-01-02" day). An empty prefix returns every row.
func ReadHistory(path, prefix string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cerrors.ErrMissingDocument.WithMessage("%s not found", path).WithCause(err)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	var rows []Row
	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, cerrors.ErrMalformedDocument.WithMessage("decode %s", path).WithCause(err)
		}
		if header {
			header = false
			continue
		}
		if !strings.HasPrefix(rec[0], prefix) {
			continue
		}
		row := Row{Timestamp: rec[0], NodeID: rec[1], DeviceID: rec[2], DeviceName: rec[3], Pin: rec[5]}
		if v, err := strconv.ParseFloat(rec[4], 64); err == nil {
			row.Value = &v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Point is one chart sample: the "HH:MM" of the reading and its value.
type Point struct {
	T string  `json:"t"`
	Y float64 `json:"y"`
}

// ChartSeries is history reshaped for the dashboard chart.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Temp   []Point  `json:"temp"`
	Humi   []Point  `json:"humi"`
}

var (
	tempMarkers = []string{"Temp", "온도"}
	humiMarkers = []string{"Humi", "습도"}
)

// Series buckets rows into temperature and humidity by device name. Rows
// without a value or matching neither bucket are dropped. Labels are the
// distinct sample times in file order.
func Series(rows []Row) ChartSeries {
	out := ChartSeries{Labels: []string{}, Temp: []Point{}, Humi: []Point{}}
	seen := map[string]bool{}
	for _, r := range rows {
		if r.Value == nil {
			continue
		}
		t := clockOf(r.Timestamp)
		switch {
		case containsAny(r.DeviceName, tempMarkers):
			out.Temp = append(out.Temp, Point{T: t, Y: *r.Value})
		case containsAny(r.DeviceName, humiMarkers):
			out.Humi = append(out.Humi, Point{T: t, Y: *r.Value})
		default:
			continue
		}
		if !seen[t] {
			seen[t] = true
			out.Labels = append(out.Labels, t)
		}
	}
	return out
}

// clockOf cuts "2006-01-02 15:04:05" down to "15:04".
func clockOf(ts string) string {
	_, clock, found := strings.Cut(ts, " ")
	if !found {
		return ts
	}
	if len(clock) > 5 {
		clock = clock[:5]
	}
	return clock
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
