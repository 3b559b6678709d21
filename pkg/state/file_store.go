package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

const (
	metaTable     = "_meta"
	lockRetry     = 10 * time.Millisecond
	layerFileMode = 0o644
)

// FileStore keeps one TOML document per layer under a root directory
// ("title/GALE01/local" is stored in root/title/GALE01/local.toml). Option
// keys become tables by section:
//
//	[Settings]
//	MSAA = 2
//
// Storage metadata lives in the reserved [_meta] table. Readers take a shared
// file lock and writers an exclusive one, so several processes may share a
// root. Files are replaced atomically.
type FileStore struct {
	root string
}

type fileDoc struct {
	Meta Meta `toml:"_meta"`
}

// NewFileStore creates root when missing.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("state: file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("state: create %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the directory layers are stored under.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file a layer is stored in.
func (s *FileStore) Path(ref Ref) (string, error) {
	id, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(id)+".toml"), nil
}

func (s *FileStore) Load(ctx context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return nil, Meta{}, false, fmt.Errorf("state: read lock %s: %w", path, lockError(ctx, err))
	}
	defer func() { _ = lock.Unlock() }()

	values, meta, ok, err := readLayerFile(path)
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}
	return values, meta, ok, nil
}

func (s *FileStore) Save(ctx context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return Meta{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("state: create %s: %w", filepath.Dir(path), err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return Meta{}, fmt.Errorf("state: write lock %s: %w", path, lockError(ctx, err))
	}
	defer func() { _ = lock.Unlock() }()

	_, current, _, err := readLayerFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("state: read %s: %w", path, err)
	}
	if err := checkETag(meta, current); err != nil {
		return Meta{}, err
	}

	stored := stamp(meta)
	payload, err := encodeLayer(values, stored)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}
	if err := writeAtomic(path, payload); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", path, err)
	}
	return cloneMeta(stored), nil
}

func lockError(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.New("lock not acquired")
}

func readLayerFile(path string) (map[string]any, Meta, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, err
	}

	var doc fileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, Meta{}, false, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, Meta{}, false, err
	}

	values := make(map[string]any, len(raw))
	for section, entry := range raw {
		if section == metaTable {
			continue
		}
		table, ok := entry.(map[string]any)
		if !ok {
			values[section] = entry
			continue
		}
		for name, value := range table {
			values[section+"."+name] = value
		}
	}
	return values, doc.Meta, true, nil
}

func encodeLayer(values map[string]any, meta Meta) ([]byte, error) {
	doc := map[string]any{metaTable: meta}
	for key, value := range values {
		section, name, ok := strings.Cut(key, ".")
		if !ok {
			doc[key] = value
			continue
		}
		table, _ := doc[section].(map[string]any)
		if table == nil {
			table = map[string]any{}
			doc[section] = table
		}
		table[name] = value
	}
	return toml.Marshal(doc)
}

func writeAtomic(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".layer-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), layerFileMode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
