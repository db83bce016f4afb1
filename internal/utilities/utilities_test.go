package utilities

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{in: "250ms", want: 250 * time.Millisecond},
		{in: " 42 ", want: 42 * time.Second},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "", err: true},
		{in: "soon", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "live_data.json")
	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`)))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":2}`)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(raw))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")

	f, created, err := OpenAppend(path)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, f.Close())

	f, created, err = OpenAppend(path)
	require.NoError(t, err)
	assert.True(t, created, "an empty file still needs its header")
	_, err = f.WriteString("row\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, created, err = OpenAppend(path)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, f.Close())
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	type doc struct {
		ID   string `json:"id" yaml:"id"`
		Crop string `json:"crop" yaml:"crop"`
	}

	jsonPath := filepath.Join(dir, "zone.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"id":"A","crop":"tomato"}`), 0o644))
	var fromJSON doc
	require.NoError(t, DecodeFile(jsonPath, &fromJSON))
	assert.Equal(t, doc{ID: "A", Crop: "tomato"}, fromJSON)

	yamlPath := filepath.Join(dir, "zone.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("id: B\ncrop: lettuce\n"), 0o644))
	var fromYAML doc
	require.NoError(t, DecodeFile(yamlPath, &fromYAML))
	assert.Equal(t, doc{ID: "B", Crop: "lettuce"}, fromYAML)

	err := DecodeFile(filepath.Join(dir, "missing.json"), &fromJSON)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrMissingDocument.Code))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{`), 0o644))
	err = DecodeFile(badPath, &fromJSON)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrMalformedDocument.Code))
}

func TestIsHardware(t *testing.T) {
	mac := func(s string) net.HardwareAddr {
		hw, err := net.ParseMAC(s)
		require.NoError(t, err)
		return hw
	}
	assert.True(t, isHardware(net.Interface{Flags: net.FlagUp, HardwareAddr: mac("b8:27:eb:12:34:56")}))
	assert.False(t, isHardware(net.Interface{Flags: net.FlagUp, HardwareAddr: mac("02:42:ac:11:00:02")}))
	assert.False(t, isHardware(net.Interface{HardwareAddr: mac("b8:27:eb:12:34:56")}))
	assert.False(t, isHardware(net.Interface{Flags: net.FlagUp | net.FlagLoopback}))

	nics, err := HardwareNICs()
	if err != nil {
		t.Skipf("interfaces unavailable: %v", err)
	}
	for _, nic := range nics {
		assert.NotEmpty(t, nic.MAC)
	}
}
