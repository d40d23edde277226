package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrCatalogUnavailable — каталог картинок не удалось перечислить.
var ErrCatalogUnavailable = errors.New("image catalog unavailable")

// Provider — источник идентификаторов картинок (упорядоченных, без повторов).
type Provider interface {
	ListImageIDs(ctx context.Context) ([]string, error)
}

var imageExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Dir — каталог из файлов в одной директории; идентификатор — имя файла.
type Dir struct {
	Root string
}

func NewDir(root string) *Dir { return &Dir{Root: root} }

func (d *Dir) ListImageIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, d.Root, err)
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if imageExt[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Path — путь к файлу картинки. Идентификаторы с разделителями пути отвергаются.
func (d *Dir) Path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("bad image id %q", id)
	}
	return filepath.Join(d.Root, id), nil
}

// Cached — запоминает список каталога на ttl, чтобы не читать директорию на каждый показ.
type Cached struct {
	next  Provider
	store *cache.Cache
}

const listKey = "ids"

func NewCached(next Provider, ttl time.Duration) *Cached {
	return &Cached{next: next, store: cache.New(ttl, 2*ttl)}
}

func (c *Cached) ListImageIDs(ctx context.Context) ([]string, error) {
	if v, ok := c.store.Get(listKey); ok {
		return v.([]string), nil
	}
	ids, err := c.next.ListImageIDs(ctx)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(listKey, ids)
	return ids, nil
}

// Invalidate — сбросить кэш (например, после добавления картинок).
func (c *Cached) Invalidate() { c.store.Delete(listKey) }
