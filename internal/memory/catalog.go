package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// record is the catalog's stored form of an entry. The catalog is the source
// of truth; the vector index can always be rebuilt from it. PendingEmbedding
// marks entries saved while the embedding provider was unavailable; they are
// lazily re-indexed on later saves and searches.
type record struct {
	Entry
	PendingEmbedding bool `json:"pending_embedding,omitempty"`
}

// catalog is a file-backed map of entry records. Callers serialize access;
// the service holds its write lock across catalog mutations.
type catalog struct {
	path    string
	entries map[string]record
}

func openCatalog(path string) (*catalog, error) {
	c := &catalog{path: path, entries: make(map[string]record)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("reading memory catalog: %w", err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parsing memory catalog %s: %w", path, err)
	}
	return c, nil
}

func (c *catalog) get(id string) (record, bool) {
	r, ok := c.entries[id]
	return r, ok
}

func (c *catalog) put(r record) {
	c.entries[r.ID] = r
}

func (c *catalog) remove(id string) {
	delete(c.entries, id)
}

func (c *catalog) pending() []record {
	var out []record
	for _, r := range c.entries {
		if r.PendingEmbedding {
			out = append(out, r)
		}
	}
	return out
}

func (c *catalog) all() []record {
	out := make([]record, 0, len(c.entries))
	for _, r := range c.entries {
		out = append(out, r)
	}
	return out
}

// flush persists the catalog atomically via temp file + rename.
func (c *catalog) flush() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memory catalog: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("creating temp catalog file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp catalog file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing catalog file: %w", err)
	}
	return nil
}
