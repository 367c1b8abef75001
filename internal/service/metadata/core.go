package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opengateware/pocket-release/internal/config"
)

// CoreFilename is the metadata file expected inside the staged core folder.
const CoreFilename = "core.json"

// releaseDateLayout is the date format the platform expects in core.json.
const releaseDateLayout = "2006-01-02"

// ErrStructure is returned when the staged core.json does not have the
// expected core.metadata nesting. The packaging sources are broken in that
// case, so the pipeline treats it as fatal rather than patching around it.
var ErrStructure = errors.New("unexpected core.json structure")

// CorePath returns the core.json path inside the staged tree for a core.
func CorePath(stageDir, coreFolder string) string {
	return filepath.Join(stageDir, "Cores", coreFolder, CoreFilename)
}

// UpdateCore rewrites core.metadata.version and core.metadata.date_release
// in the JSON file at path, leaving every other field untouched.
func UpdateCore(path, version string, releaseDate time.Time) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var document map[string]any
	if err = json.Unmarshal(contents, &document); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	core, ok := document["core"].(map[string]any)
	if !ok {
		return fmt.Errorf("%s: missing \"core\" object: %w", path, ErrStructure)
	}

	meta, ok := core["metadata"].(map[string]any)
	if !ok {
		return fmt.Errorf("%s: missing \"core.metadata\" object: %w", path, ErrStructure)
	}

	meta["version"] = version
	meta["date_release"] = releaseDate.Format(releaseDateLayout)

	var buffer bytes.Buffer

	encoder := json.NewEncoder(&buffer)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)

	if err = encoder.Encode(document); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err = os.WriteFile(filepath.Clean(path), buffer.Bytes(), config.DefaultFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
