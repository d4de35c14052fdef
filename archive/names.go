// Package archive stores extracted image bytes and packs them into the flat,
// filename-keyed zip that travels alongside the interchange JSON.
package archive

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// namePattern matches generated asset names.
var namePattern = regexp.MustCompile(`^slide(\d+)_img_([0-9a-f]{8})\.([a-z0-9]+)$`)

// NameGenerator produces asset names of the form slide<N>_img_<8 hex>.<ext>.
// Names are unique for the lifetime of one generator, which is the scope of
// one archive.
type NameGenerator struct {
	mu     sync.Mutex
	used   map[string]struct{}
	random func() string
}

// NewNameGenerator creates a generator seeded from random UUIDs.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		used:   make(map[string]struct{}),
		random: randomHex,
	}
}

// randomHex returns the first 8 hex digits of a random UUID.
func randomHex() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}

// Name returns a fresh name for an image on the given 1-based slide.
func (g *NameGenerator) Name(slide int, ext string) string {
	ext = NormalizeExt(ext)
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		name := fmt.Sprintf("slide%d_img_%s.%s", slide, g.random(), ext)
		if _, dup := g.used[name]; dup {
			continue
		}
		g.used[name] = struct{}{}
		return name
	}
}

// Reserve marks a name as taken, e.g. one already present in the archive.
func (g *NameGenerator) Reserve(name string) {
	g.mu.Lock()
	g.used[name] = struct{}{}
	g.mu.Unlock()
}

// ParseName splits a generated asset name into its slide number and
// extension.
func ParseName(name string) (slide int, ext string, ok bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	fmt.Sscanf(m[1], "%d", &slide)
	return slide, m[3], true
}

// NormalizeExt lowercases an extension and strips its leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// imageExts are the extensions packed into an archive.
var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "bmp": true, "gif": true,
	"tif": true, "tiff": true, "webp": true, "emf": true, "wmf": true, "svg": true,
}

// IsImageName reports whether name has a recognized image extension.
func IsImageName(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return imageExts[NormalizeExt(name[i:])]
}
