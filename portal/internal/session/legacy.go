package session

import (
	"bufio"
	"bytes"
	"context"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CookieJar is the legacy location older portal versions kept the token in.
type CookieJar interface {
	Lookup(name string) (string, bool, error)
	Remove(name string) error
}

// MigrateLegacy moves a token left in the cookie jar into the store and deletes the
// cookie. A token already in the store wins over the cookie.
func (m *Manager) MigrateLegacy(ctx context.Context, jar CookieJar) (bool, error) {
	value, ok, err := jar.Lookup(StorageKey)
	if err != nil {
		return false, errors.Wrap(err, "legacy lookup")
	}
	if !ok {
		return false, nil
	}

	migrated := false
	if _, has := m.rawToken(ctx); !has {
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		if token, ok := storedToken([]byte(value)); ok {
			value = token
		}
		if value != "" {
			if err := m.save(ctx, value); err != nil {
				return false, err
			}
			migrated = true
		}
	}
	if err := jar.Remove(StorageKey); err != nil {
		return migrated, errors.Wrap(err, "legacy remove")
	}
	m.log.Info("legacy session cookie removed", zap.Bool("migrated", migrated))
	return migrated, nil
}

const (
	httpOnlyPrefix = "#HttpOnly_"
	cookieFields   = 7
	nameField      = 5
	valueField     = 6
)

// NetscapeJar reads and edits a cookies.txt file in the Netscape format.
type NetscapeJar struct {
	path string
	mu   sync.Mutex
}

func NewNetscapeJar(path string) *NetscapeJar {
	return &NetscapeJar{path: path}
}

func cookieLine(line string) ([]string, bool) {
	line = strings.TrimPrefix(line, httpOnlyPrefix)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	fields := strings.Split(line, "\t")
	if len(fields) != cookieFields {
		return nil, false
	}
	return fields, true
}

func (j *NetscapeJar) Lookup(name string) (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields, ok := cookieLine(strings.TrimRight(sc.Text(), "\r"))
		if ok && fields[nameField] == name {
			return fields[valueField], true, nil
		}
	}
	return "", false, sc.Err()
}

// Remove rewrites the file without the named cookie. Other lines are kept verbatim.
func (j *NetscapeJar) Remove(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if fields, ok := cookieLine(strings.TrimRight(line, "\r")); ok && fields[nameField] == name {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}
	info, err := os.Stat(j.path)
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, out.Bytes(), info.Mode().Perm())
}
