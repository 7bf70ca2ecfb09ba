package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorlens/pkg/logger"
)

// Field is one front matter entry
type Field struct {
	Key   string
	Value interface{}
}

// FrontMatter is an ordered YAML mapping
type FrontMatter []Field

// MarshalYAML keeps entries in insertion order
func (fm FrontMatter) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fm {
		var value yaml.Node
		if err := value.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encode front matter %q: %w", f.Key, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}, &value)
	}
	return node, nil
}

// Vault writes markdown notes under a root directory
// ⭐ SSOT: 노트 파일 쓰기는 여기서만
type Vault struct {
	root   string
	logger *logger.Logger
}

// NewVault creates a vault rooted at root
func NewVault(root string, log *logger.Logger) *Vault {
	return &Vault{root: root, logger: log}
}

// Root returns the vault directory
func (v *Vault) Root() string {
	return v.root
}

// Write stores body at notePath (relative to the root), preceded by YAML
// front matter when fm is non-empty, and returns the written path.
func (v *Vault) Write(notePath string, fm FrontMatter, body string) (string, error) {
	path, err := v.resolve(notePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create note dir: %w", err)
	}

	var buf bytes.Buffer
	if len(fm) > 0 {
		data, err := yaml.Marshal(fm)
		if err != nil {
			return "", fmt.Errorf("marshal front matter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(bytes.TrimSpace(data))
		buf.WriteString("\n---\n\n")
	}
	buf.WriteString(body)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}

	v.logger.WithField("path", path).Info("Note written")
	return path, nil
}

// resolve joins notePath under the root, rejecting paths that escape it
func (v *Vault) resolve(notePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(notePath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("note path %q escapes the vault", notePath)
	}
	return filepath.Join(v.root, clean), nil
}
