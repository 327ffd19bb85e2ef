package fs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/matrixctl"
)

// TokenCacheFile is the name of the token cache inside the data directory.
const TokenCacheFile = "tokens.json"

// Ensure TokenCache implements matrixctl.TokenCache at compile time.
var _ matrixctl.TokenCache = (*TokenCache)(nil)

// TokenCache stores tokens in a single JSON object keyed by profile tag.
// The directory is created 0700 and the file is written whole with mode
// 0600. Concurrent writers from separate processes race; the last one
// wins.
type TokenCache struct {
	path string
	mu   sync.Mutex
}

// NewTokenCache creates a TokenCache backed by the file at path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// DefaultTokenCachePath returns the token cache path in the data directory.
func DefaultTokenCachePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", matrixctl.Errorf(matrixctl.ECONFIG, "cannot locate data directory: %v", err)
	}
	return filepath.Join(dir, TokenCacheFile), nil
}

// Path returns the cache file path.
func (c *TokenCache) Path() string {
	return c.path
}

// Load returns the token stored for tag, or nil when there is none.
func (c *TokenCache) Load(tag string) (*matrixctl.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, err := c.read()
	if err != nil {
		return nil, err
	}
	return tokens[tag], nil
}

// Save stores token under tag and rewrites the file.
func (c *TokenCache) Save(tag string, token *matrixctl.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, err := c.read()
	if err != nil {
		return err
	}
	tokens[tag] = token

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot encode token cache: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot create token cache directory: %v", err)
	}
	if err := writeFileAtomic(c.path, data, 0600); err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot write token cache %s: %v", c.path, err)
	}
	return nil
}

func (c *TokenCache) read() (map[string]*matrixctl.Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*matrixctl.Token{}, nil
	} else if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot read token cache %s: %v", c.path, err)
	}

	tokens := map[string]*matrixctl.Token{}
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "token cache %s is corrupt: %v", c.path, err)
	}
	return tokens, nil
}
