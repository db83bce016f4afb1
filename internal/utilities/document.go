package utilities

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"gopkg.in/yaml.v3"
)

// DecodeFile decodes a JSON document into out, or a YAML one when the file
// extension is .yaml/.yml.
func DecodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cerrors.ErrMissingDocument.WithMessage("%s not found", path).WithCause(err)
		}
		return cerrors.ErrConfiguration.WithCause(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, out)
	default:
		err = json.Unmarshal(raw, out)
	}
	if err != nil {
		return cerrors.ErrMalformedDocument.WithMessage("decode %s", path).WithCause(err)
	}
	return nil
}
