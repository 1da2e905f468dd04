package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// RepresentationKind tags how a furniture instance is drawn in the 3D view.
type RepresentationKind string

const (
	KindModel       RepresentationKind = "model"
	KindPrimitives  RepresentationKind = "primitives"
	KindPlaceholder RepresentationKind = "placeholder"
)

// Representation is the drawable form of a furniture instance:
// Model(ref), Primitives(parts) or the unit cube Placeholder.
type Representation struct {
	Kind     RepresentationKind `json:"kind"`
	ModelRef string             `json:"modelRef,omitempty"`
	Parts    []Part             `json:"parts,omitempty"`
}

// Placeholder is a unit cube drawn with the item's own color.
func Placeholder() Representation {
	return Representation{
		Kind:  KindPlaceholder,
		Parts: []Part{{Geometry: Box(1, 1, 1)}},
	}
}

// AssetChecker reports whether a detailed model asset can be loaded.
type AssetChecker interface {
	Available(ref string) bool
}

// DirAssets resolves model references against a directory on disk.
type DirAssets struct {
	Root string
}

// Available reports whether ref exists as a regular file under Root.
func (d DirAssets) Available(ref string) bool {
	if d.Root == "" || ref == "" {
		return false
	}
	p := filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// StaticAssets is a fixed set of available references.
type StaticAssets map[string]bool

func (s StaticAssets) Available(ref string) bool { return s[ref] }

// Resolver picks the representation for a furniture type.
type Resolver struct {
	catalog *Catalog
	assets  AssetChecker
	log     *logrus.Entry
}

// NewResolver creates a resolver. A nil checker treats every model as unavailable.
func NewResolver(c *Catalog, assets AssetChecker) *Resolver {
	if c == nil {
		panic("catalog cannot be nil for Resolver")
	}
	if assets == nil {
		assets = StaticAssets{}
	}
	return &Resolver{
		catalog: c,
		assets:  assets,
		log:     logrus.WithField("component", "representation_resolver"),
	}
}

// Resolve returns Model when the asset loads, else the catalog primitives, else the placeholder.
func (r *Resolver) Resolve(furnitureType string) Representation {
	entry, ok := r.catalog.Lookup(furnitureType)
	if !ok {
		r.log.WithField("type", furnitureType).Warn("Unknown furniture type, using placeholder")
		return Placeholder()
	}
	if entry.ModelPath != "" {
		if r.assets.Available(entry.ModelPath) {
			return Representation{Kind: KindModel, ModelRef: entry.ModelPath}
		}
		r.log.WithFields(logrus.Fields{
			"type":  furnitureType,
			"model": entry.ModelPath,
		}).Warn("Model asset unavailable, falling back to primitives")
	}
	if len(entry.Parts) > 0 {
		return Representation{Kind: KindPrimitives, Parts: append([]Part(nil), entry.Parts...)}
	}
	return Placeholder()
}
