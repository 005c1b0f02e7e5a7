package session

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/parser"
)

// Resources is the default resource resolver: files and directories are
// checked on disk relative to the project root, URLs syntactically, and
// everything else against the recently-used inputs table.
type Resources struct {
	store      *db.DB
	projectDir string
}

// NewResources builds the default resolver for a project.
func NewResources(store *db.DB, projectDir string) *Resources {
	return &Resources{store: store, projectDir: projectDir}
}

// Exists reports whether the reference points at something real.
func (r *Resources) Exists(ctx context.Context, ref parser.InputRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch ref.Kind {
	case parser.KindFile, parser.KindDirectory, parser.KindWorkspace, parser.KindSite:
		path := ref.Identifier
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.projectDir, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if ref.Kind == parser.KindFile {
			return !info.IsDir(), nil
		}
		return info.IsDir(), nil
	case parser.KindURL:
		u, err := url.Parse(ref.Identifier)
		if err != nil {
			return false, nil
		}
		return u.Scheme == "http" || u.Scheme == "https", nil
	default:
		// Opaque kinds: anything we have seen before counts as real.
		recent, err := r.store.RecentInputs(string(ref.Kind), r.projectDir, 50)
		if err != nil {
			return false, err
		}
		for _, in := range recent {
			if in.Identifier == ref.Identifier {
				return true, nil
			}
		}
		return false, nil
	}
}

// Recent returns recently used identifiers of a kind for repair suggestions.
func (r *Resources) Recent(ctx context.Context, kind parser.InputKind, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.store.RecentInputs(string(kind), r.projectDir, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, in := range rows {
		out = append(out, in.Identifier)
	}
	return out, nil
}
