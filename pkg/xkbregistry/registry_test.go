package xkbregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryXML = `<?xml version="1.0" encoding="UTF-8"?>
<xkbConfigRegistry version="1.1">
  <layoutList>
    <layout>
      <configItem>
        <name>us</name>
        <description>English (US)</description>
      </configItem>
    </layout>
    <layout>
      <configItem>
        <name>ru</name>
        <description>Russian</description>
      </configItem>
      <variantList>
        <variant>
          <configItem>
            <name>phonetic</name>
            <description>Russian (phonetic)</description>
          </configItem>
        </variant>
      </variantList>
    </layout>
  </layoutList>
</xkbConfigRegistry>
`

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "evdev.xml")
	require.NoError(t, os.WriteFile(path, []byte(registryXML), 0o644))

	registry, err := Load(path)
	require.NoError(t, err)
	return registry
}

func TestDescription(t *testing.T) {
	registry := loadTestRegistry(t)

	assert.Equal(t, "English (US)", registry.Description("us", ""))
	assert.Equal(t, "Russian", registry.Description("ru", ""))
	assert.Equal(t, "Russian (phonetic)", registry.Description("ru", "phonetic"))
	assert.Equal(t, "", registry.Description("ru", "nope"))
	assert.Equal(t, "", registry.Description("xx", ""))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}
