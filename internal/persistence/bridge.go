// Package persistence is the Persistence Bridge: it reads and writes the
// canonical project document, normalizing on load and validating on save.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/thestuu/engine/internal/model"
	"github.com/thestuu/engine/internal/obslog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Bridge owns the project directory and the load/save boundary.
type Bridge struct {
	dir string
	log zerolog.Logger
}

func New(projectDir string) *Bridge {
	return &Bridge{dir: projectDir, log: obslog.New("persistence")}
}

// EnsureDir creates the project directory if it does not already exist.
func (b *Bridge) EnsureDir() error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("persistence: ensure project directory: %w", err)
	}
	return nil
}

func (b *Bridge) path(filename string) string {
	return filepath.Join(b.dir, filename)
}

// Load reads and parses filename, normalizing it before returning. A
// missing file is reported os.ErrNotExist-wrapped so callers can
// distinguish "seed a default" from a genuine parse failure.
func (b *Bridge) Load(filename string) (*model.Project, error) {
	raw, err := os.ReadFile(b.path(filename))
	if err != nil {
		return nil, fmt.Errorf("persistence: read %s: %w", filename, err)
	}
	var p model.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("persistence: parse %s: %w", filename, err)
	}
	model.Normalize(&p)
	return &p, nil
}

// Save normalizes and validates project before writing it atomically into
// the project directory. A project that still fails validation
// after normalization is rejected with every violation concatenated, never
// partially written.
func (b *Bridge) Save(filename string, project *model.Project) error {
	model.Normalize(project)
	if errs := model.Validate(project); len(errs) > 0 {
		return fmt.Errorf("persistence: %s failed validation: %s", filename, joinErrors(errs))
	}
	if err := b.EnsureDir(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", filename, err)
	}
	if err := writeAtomic(b.path(filename), raw); err != nil {
		return fmt.Errorf("persistence: write %s: %w", filename, err)
	}
	b.log.Info().Str("file", filename).Int("bytes", len(raw)).Msg("project saved")
	return nil
}

// EnsureDefault loads filename, seeding it with the default project if it
// does not yet exist. Any other load failure is surfaced to the caller; a
// corrupt-but-present file is not silently overwritten.
func (b *Bridge) EnsureDefault(filename string) (*model.Project, error) {
	p, err := b.Load(filename)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b.log.Info().Str("file", filename).Msg("no project file found, seeding default project")
	def := model.Default()
	if err := b.Save(filename, def); err != nil {
		return nil, err
	}
	return b.Load(filename)
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
