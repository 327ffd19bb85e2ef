// Package yaml loads the layered matrixctl configuration.
package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// placeholder matches {{home}}, {{user}} and dotted key paths such as
// {{servers.default.api.domain}}.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// DefaultPaths returns the configuration search list, lowest priority
// first.
func DefaultPaths() []string {
	paths := []string{
		"/etc/matrixctl/config.yml",
		"/etc/matrixctl/config.yaml",
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		paths = append(paths,
			filepath.Join(configHome, "matrixctl", "config.yml"),
			filepath.Join(configHome, "matrixctl", "config.yaml"),
		)
	}
	return paths
}

// Loader reads and merges configuration files.
type Loader struct {
	// Paths replaces the default search list when set. Explicit paths must
	// exist; default paths are skipped when missing.
	Paths []string

	// Home and User fill the {{home}} and {{user}} placeholders. They
	// default to the current user's values.
	Home string
	User string

	Logger zerolog.Logger
}

// NewLoader creates a Loader. An empty paths uses DefaultPaths.
func NewLoader(paths []string, logger zerolog.Logger) *Loader {
	return &Loader{Paths: paths, Logger: logger}
}

// Load reads every file, merges them with later files overriding earlier
// ones at top-level key granularity, and selects the named server profile.
func (l *Loader) Load(serverName string) (*Document, error) {
	if serverName == "" {
		serverName = matrixctl.DefaultServerName
	}

	paths, explicit := l.Paths, true
	if len(paths) == 0 {
		paths, explicit = DefaultPaths(), false
	}

	doc := &Document{data: map[string]any{}}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			continue
		} else if err != nil {
			return nil, matrixctl.Errorf(matrixctl.ECONFIG, "cannot read configuration file %s: %v", path, err)
		}

		layer, err := l.render(path, data, doc.data)
		if err != nil {
			return nil, err
		}
		for k, v := range layer {
			doc.data[k] = v
		}
		doc.files = append(doc.files, path)
	}
	if len(doc.files) == 0 {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG,
			"no configuration file found (searched %s)", strings.Join(paths, ", "))
	}

	if err := doc.selectServer(serverName); err != nil {
		return nil, err
	}
	doc.applyDefaults()

	l.Logger.Debug().
		Strs("files", doc.files).
		Str("server", serverName).
		Msg("configuration loaded")
	l.Logger.Debug().Msg("configuration tree:\n" + doc.Redacted())
	return doc, nil
}

// render substitutes placeholders in two passes and parses the result.
// The first pass resolves {{home}} and {{user}} so the file can be parsed
// to learn its own keys; the second pass resolves key references against
// the files merged so far plus the file itself.
func (l *Loader) render(path string, data []byte, merged map[string]any) (map[string]any, error) {
	vars := map[string]string{
		"home": l.home(),
		"user": l.user(),
	}

	first := substitute(string(data), func(key string) string {
		return vars[key]
	})
	self, err := parse(path, first)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]any, len(merged)+len(self))
	for k, v := range merged {
		lookup[k] = v
	}
	for k, v := range self {
		lookup[k] = v
	}

	second := substitute(string(data), func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		v, err := get(lookup, strings.Split(key, "."))
		if err != nil {
			return ""
		}
		return scalarString(v)
	})
	return parse(path, second)
}

func (l *Loader) home() string {
	if l.Home != "" {
		return l.Home
	}
	home, _ := os.UserHomeDir()
	return home
}

func (l *Loader) user() string {
	if l.User != "" {
		return l.User
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func substitute(text string, resolve func(key string) string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		return resolve(placeholder.FindStringSubmatch(m)[1])
	})
}

func parse(path, text string) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "invalid YAML in %s: %v", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func scalarString(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Document is a merged configuration tree.
type Document struct {
	data   map[string]any
	files  []string
	server string
}

// Files returns the merged files in load order.
func (d *Document) Files() []string {
	return append([]string(nil), d.files...)
}

// Get returns the value at the key path.
func (d *Document) Get(keys ...string) (any, error) {
	return get(d.data, keys)
}

// GetDefault returns the value at the key path, or def when the path is
// missing.
func (d *Document) GetDefault(def any, keys ...string) any {
	v, err := get(d.data, keys)
	if err != nil {
		return def
	}
	return v
}

func get(data map[string]any, keys []string) (any, error) {
	var cur any = data
	for i, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, matrixctl.Errorf(matrixctl.ECONFIG,
				"configuration key %s is not a mapping", strings.Join(keys[:i], "."))
		}
		cur, ok = m[key]
		if !ok {
			return nil, matrixctl.Errorf(matrixctl.ECONFIG,
				"configuration key %s is missing", strings.Join(keys[:i+1], "."))
		}
	}
	return cur, nil
}

func (d *Document) selectServer(name string) error {
	raw, ok := d.data["servers"]
	if !ok {
		return matrixctl.Errorf(matrixctl.ECONFIG, "configuration has no servers section")
	}
	servers, ok := raw.(map[string]any)
	if !ok {
		return matrixctl.Errorf(matrixctl.ECONFIG, "configuration key servers must be a mapping")
	}
	server, ok := servers[name]
	if !ok {
		return matrixctl.Errorf(matrixctl.ECONFIG, "server %q is not configured", name)
	}
	if _, ok := server.(map[string]any); !ok {
		return matrixctl.Errorf(matrixctl.ECONFIG, "configuration key servers.%s must be a mapping", name)
	}
	d.data["server"] = server
	d.server = name
	return nil
}

func (d *Document) applyDefaults() {
	setDefault(d.data, matrixctl.DefaultConcurrentLimit, "server", "api", "concurrent_limit")
	setDefault(d.data, matrixctl.AuthTypeToken, "server", "api", "auth_type")
	setDefault(d.data, []any{}, "server", "alias", "room")
	setDefault(d.data, false, "ui", "image", "enabled")
	setDefault(d.data, matrixctl.DefaultImageScaleFactor, "ui", "image", "scale_factor")
	setDefault(d.data, matrixctl.DefaultImageMaxHeightOfTerm, "ui", "image", "max_height_of_terminal")
}

// setDefault sets the value at the key path unless one is present,
// creating intermediate mappings. Non-mapping intermediates are left alone.
func setDefault(data map[string]any, value any, keys ...string) {
	cur := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key]
		if !ok || next == nil {
			m := map[string]any{}
			cur[key] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return
		}
		cur = m
	}
	last := keys[len(keys)-1]
	if v, ok := cur[last]; !ok || v == nil {
		cur[last] = value
	}
}

// Config decodes the selected server profile and the UI settings.
func (d *Document) Config() (*matrixctl.Config, error) {
	server := &matrixctl.Server{}
	if err := decode(d.data["server"], server); err != nil {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "server %q: %v", d.server, err)
	}
	server.Name = d.server
	server.ApplyDefaults()
	if err := server.Validate(); err != nil {
		return nil, err
	}

	cfg := &matrixctl.Config{
		ServerName: d.server,
		Server:     server,
		Files:      d.Files(),
	}
	if ui, ok := d.data["ui"]; ok {
		if err := decode(ui, &cfg.UI); err != nil {
			return nil, matrixctl.Errorf(matrixctl.ECONFIG, "ui: %v", err)
		}
	}
	cfg.UI.ApplyDefaults()
	return cfg, nil
}

// decode converts a generic tree into a typed value through YAML.
func decode(in, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// Redacted renders the tree as YAML with secrets replaced by their length.
func (d *Document) Redacted() string {
	data, err := yaml.Marshal(redact(d.data))
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func redact(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			if isSecretKey(k) {
				out[k] = matrixctl.Redact(scalarString(v))
				continue
			}
			out[k] = redact(v)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = redact(x[i])
		}
		return out
	default:
		return v
	}
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	return key == "token" ||
		strings.HasSuffix(key, "_token") ||
		strings.Contains(key, "password") ||
		strings.Contains(key, "secret")
}
