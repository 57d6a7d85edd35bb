package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ciclus/rd-dashboard/utils"
)

// Photo kinds accepted by the form.
const (
	KindInitial   = "initial"
	KindProgress  = "progress"
	KindFinal     = "final"
	KindSignature = "signature"
)

const keyPrefix = "rd-photos"

// PhotoStore saves an encoded JPEG and returns the URL to persist.
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

func ValidKind(kind string) bool {
	switch kind {
	case KindInitial, KindProgress, KindFinal, KindSignature:
		return true
	}
	return false
}

// PhotoKey builds the object key for one photo of a draft or report.
func PhotoKey(owner, kind string) string {
	return path.Join(keyPrefix, sanitize(owner), sanitize(kind)+".jpg")
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// LocalStore writes photos below a directory served at BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte) (string, error) {
	full := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write photo %s: %w", key, err)
	}
	utils.InfoLogger.Debugf("photo stored at %s", full)
	return s.BaseURL + "/" + key, nil
}
