// Package catalog loads the static stage/region/overlay/basemap tables.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/pkg/validator"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default returns the embedded catalog.
func Default() (*domain.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*domain.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, validates and indexes a YAML catalog.
func Parse(data []byte) (*domain.Catalog, error) {
	var c domain.Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if err := validator.Validate(&c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	c.Index()

	if err := crossCheck(&c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func crossCheck(c *domain.Catalog) error {
	var errs []error

	errs = append(errs, duplicates("stage", len(c.Stages), func(i int) string { return c.Stages[i].ID })...)
	errs = append(errs, duplicates("region", len(c.Regions), func(i int) string { return c.Regions[i].ID })...)
	errs = append(errs, duplicates("overlay", len(c.Overlays), func(i int) string { return c.Overlays[i].ID })...)
	errs = append(errs, duplicates("basemap", len(c.Basemaps), func(i int) string { return c.Basemaps[i].ID })...)
	errs = append(errs, duplicates("color scale", len(c.ColorScales), func(i int) string { return c.ColorScales[i].ID })...)

	for _, s := range c.ColorScales {
		switch s.Kind {
		case domain.ScaleContinuous:
			if len(s.Stops) < 2 {
				errs = append(errs, fmt.Errorf("scale %q: continuous scale needs at least 2 stops", s.ID))
			}
			if s.Labels == nil {
				errs = append(errs, fmt.Errorf("scale %q: continuous scale needs min/mid/max labels", s.ID))
			}
			for i := 1; i < len(s.Stops); i++ {
				if s.Stops[i].Value <= s.Stops[i-1].Value {
					errs = append(errs, fmt.Errorf("scale %q: stops must increase", s.ID))
					break
				}
			}
		case domain.ScaleCategorical:
			if len(s.Categories) == 0 {
				errs = append(errs, fmt.Errorf("scale %q: categorical scale needs categories", s.ID))
			}
			if s.Fallback == "" {
				errs = append(errs, fmt.Errorf("scale %q: categorical scale needs a fallback colour", s.ID))
			}
		}
	}

	for _, s := range c.Stages {
		if _, ok := c.Scale(s.Scale); !ok {
			errs = append(errs, fmt.Errorf("stage %q: unknown scale %q", s.ID, s.Scale))
		}
	}

	for _, o := range c.Overlays {
		if o.Scale == "" && o.Color == "" {
			errs = append(errs, fmt.Errorf("overlay %q: needs a scale or a colour", o.ID))
		}
		if o.Scale != "" {
			if _, ok := c.Scale(o.Scale); !ok {
				errs = append(errs, fmt.Errorf("overlay %q: unknown scale %q", o.ID, o.Scale))
			}
		}
		if _, clash := c.Stage(o.ID); clash {
			errs = append(errs, fmt.Errorf("overlay %q: id clashes with a stage", o.ID))
		}
	}

	for _, r := range c.Regions {
		if r.ID == domain.RegionAll {
			errs = append(errs, fmt.Errorf("region id %q is reserved", r.ID))
		}
		for _, s := range r.Stages {
			if _, ok := c.Stage(s); !ok {
				errs = append(errs, fmt.Errorf("region %q: unknown stage %q", r.ID, s))
			}
		}
	}

	for _, b := range c.Basemaps {
		if (b.StyleURL == "") == (b.Raster == nil) {
			errs = append(errs, fmt.Errorf("basemap %q: exactly one of style_url or raster is required", b.ID))
		}
	}

	if _, ok := c.Region(c.Defaults.Region); !ok && c.Defaults.Region != domain.RegionAll {
		errs = append(errs, fmt.Errorf("defaults: unknown region %q", c.Defaults.Region))
	}
	if _, ok := c.Stage(c.Defaults.Stage); !ok {
		errs = append(errs, fmt.Errorf("defaults: unknown stage %q", c.Defaults.Stage))
	}
	if _, ok := c.Basemap(c.Defaults.Basemap); !ok {
		errs = append(errs, fmt.Errorf("defaults: unknown basemap %q", c.Defaults.Basemap))
	}

	if !c.Sampling.Monotonic() {
		errs = append(errs, errors.New("sampling: rates must not grow with file size"))
	}

	for _, key := range c.Available {
		if _, _, ok := c.ParseArchiveKey(key); !ok {
			errs = append(errs, fmt.Errorf("available: key %q matches no region/stage or overlay", key))
		}
	}

	return errors.Join(errs...)
}

func duplicates(kind string, n int, id func(int) string) []error {
	seen := make(map[string]struct{}, n)
	var errs []error
	for i := 0; i < n; i++ {
		k := id(i)
		if _, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("duplicate %s id %q", kind, k))
		}
		seen[k] = struct{}{}
	}
	return errs
}
