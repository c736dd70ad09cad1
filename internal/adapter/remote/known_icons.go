package remote

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"icon-resolver/internal/pkg/apperrors"

	"gopkg.in/yaml.v3"
)

//go:embed known_icons.yaml
var embeddedKnownIcons []byte

type knownIconsFile struct {
	Icons []knownIconEntry `yaml:"icons"`
}

type knownIconEntry struct {
	Asset string `yaml:"asset"`
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
}

// KnownIcons maps well-known asset ids to fixed icon URLs.
type KnownIcons struct {
	urls map[string]string
}

// LoadKnownIcons parses the table at overridePath, or the embedded table when overridePath is empty.
// Relative paths are resolved against cdnBaseURL.
func LoadKnownIcons(overridePath, cdnBaseURL string) (*KnownIcons, error) {
	raw := embeddedKnownIcons
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read well-known icons %s: %v", apperrors.ErrConfiguration, overridePath, err)
		}
		raw = data
	}
	return ParseKnownIcons(raw, cdnBaseURL)
}

// ParseKnownIcons parses a YAML icon table.
func ParseKnownIcons(raw []byte, cdnBaseURL string) (*KnownIcons, error) {
	var file knownIconsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse well-known icons: %v", apperrors.ErrConfiguration, err)
	}

	base := strings.TrimSuffix(cdnBaseURL, "/")
	urls := make(map[string]string, len(file.Icons))
	for _, entry := range file.Icons {
		if entry.Asset == "" {
			return nil, fmt.Errorf("%w: well-known icon entry without asset", apperrors.ErrConfiguration)
		}
		switch {
		case entry.URL != "":
			urls[entry.Asset] = entry.URL
		case entry.Path != "":
			urls[entry.Asset] = base + "/" + strings.TrimPrefix(entry.Path, "/")
		default:
			return nil, fmt.Errorf("%w: well-known icon %s has neither path nor url", apperrors.ErrConfiguration, entry.Asset)
		}
	}
	return &KnownIcons{urls: urls}, nil
}

// Lookup returns the icon URL of assetID.
func (k *KnownIcons) Lookup(assetID string) (string, bool) {
	u, ok := k.urls[assetID]
	return u, ok
}

// Len returns the number of entries.
func (k *KnownIcons) Len() int {
	return len(k.urls)
}
