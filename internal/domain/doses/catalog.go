package doses

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Kind string

const (
	KindRoutine Kind = "routine"
	KindRescue  Kind = "rescue"
)

// Medicine es una entrada del catálogo.
type Medicine struct {
	Name string
	Kind Kind
}

// Catalog es la lista fija y ordenada de medicamentos.
// El medicamento de rescate se marca con KindRescue; el orden no tiene significado.
type Catalog struct {
	items  []Medicine
	byName map[string]Medicine
	rescue string
}

// DefaultMedicines replica la configuración histórica del tracker.
var DefaultMedicines = []string{"朝の薬(1)", "朝の薬(2)", "朝の薬(3)", "頓服:rescue"}

func NewCatalog(items []Medicine) (Catalog, error) {
	if len(items) == 0 {
		return Catalog{}, fmt.Errorf("%w: empty catalog", ErrInvalidCatalog)
	}

	c := Catalog{
		items:  make([]Medicine, 0, len(items)),
		byName: make(map[string]Medicine, len(items)),
	}
	for _, m := range items {
		m.Name = NormalizeName(m.Name)
		if m.Name == "" {
			return Catalog{}, fmt.Errorf("%w: empty medicine name", ErrInvalidCatalog)
		}
		if m.Kind == "" {
			m.Kind = KindRoutine
		}
		if m.Kind != KindRoutine && m.Kind != KindRescue {
			return Catalog{}, fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidCatalog, m.Kind, m.Name)
		}
		if _, dup := c.byName[m.Name]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate medicine %s", ErrInvalidCatalog, m.Name)
		}
		if m.Kind == KindRescue {
			if c.rescue != "" {
				return Catalog{}, fmt.Errorf("%w: more than one rescue medicine (%s, %s)", ErrInvalidCatalog, c.rescue, m.Name)
			}
			c.rescue = m.Name
		}
		c.items = append(c.items, m)
		c.byName[m.Name] = m
	}
	return c, nil
}

// ParseCatalog interpreta entradas "nombre" o "nombre:kind" (kind = routine|rescue).
func ParseCatalog(entries []string) (Catalog, error) {
	items := make([]Medicine, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, kind := raw, KindRoutine
		if i := strings.LastIndex(raw, ":"); i >= 0 {
			name = raw[:i]
			kind = Kind(strings.ToLower(strings.TrimSpace(raw[i+1:])))
		}
		items = append(items, Medicine{Name: name, Kind: kind})
	}
	return NewCatalog(items)
}

// MustCatalog es para defaults y tests.
func MustCatalog(entries ...string) Catalog {
	c, err := ParseCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// NormalizeName recorta espacios y lleva el nombre a NFC.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (c Catalog) Medicines() []Medicine {
	out := make([]Medicine, len(c.items))
	copy(out, c.items)
	return out
}

func (c Catalog) Lookup(name string) (Medicine, bool) {
	m, ok := c.byName[NormalizeName(name)]
	return m, ok
}

func (c Catalog) Routine() []string {
	out := make([]string, 0, len(c.items))
	for _, m := range c.items {
		if m.Kind == KindRoutine {
			out = append(out, m.Name)
		}
	}
	return out
}

// Rescue devuelve el medicamento de rescate, si hay uno configurado.
func (c Catalog) Rescue() (string, bool) {
	return c.rescue, c.rescue != ""
}

func (c Catalog) IsRescue(name string) bool {
	return c.rescue != "" && NormalizeName(name) == c.rescue
}
