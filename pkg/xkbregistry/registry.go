// Package xkbregistry reads the XKB config registry (evdev.xml) so layout
// codes can be shown with their human-readable names.
package xkbregistry

import (
	"encoding/xml"
	"fmt"
	"os"
)

type Registry struct {
	XMLName    xml.Name   `xml:"xkbConfigRegistry"`
	LayoutList layoutList `xml:"layoutList"`
}

type layoutList struct {
	Layout []layout `xml:"layout"`
}

type layout struct {
	ConfigItem  configItem  `xml:"configItem"`
	VariantList variantList `xml:"variantList"`
}

type variantList struct {
	Variant []variant `xml:"variant"`
}

type variant struct {
	ConfigItem configItem `xml:"configItem"`
}

type configItem struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
}

func Load(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer file.Close()

	registry := &Registry{}
	if err := xml.NewDecoder(file).Decode(registry); err != nil {
		return nil, fmt.Errorf("decode registry xml: %w", err)
	}

	return registry, nil
}

// Description returns the registry description for a layout code, or the
// variant's description when variant is non-empty. Empty string when unknown.
func (r *Registry) Description(code, variant string) string {
	for _, l := range r.LayoutList.Layout {
		if l.ConfigItem.Name != code {
			continue
		}
		if variant == "" {
			return l.ConfigItem.Description
		}
		for _, v := range l.VariantList.Variant {
			if v.ConfigItem.Name == variant {
				return v.ConfigItem.Description
			}
		}
	}

	return ""
}
