package passwd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DateLayout is the expiry date format in the password file.
const DateLayout = "2006-01-02"

// FilePermissions for password files (read/write for owner only).
const FilePermissions = 0600

// ErrMalformed is returned for lines that do not parse.
var ErrMalformed = errors.New("passwd: malformed entry")

// Entry is one line of a password file.
type Entry struct {
	User    string
	Hash    []byte
	Expires time.Time // zero when the password never expires
}

// String formats the entry as "user:hash[:YYYY-MM-DD]".
func (e *Entry) String() string {
	if e.Expires.IsZero() {
		return e.User + ":" + string(e.Hash)
	}
	return e.User + ":" + string(e.Hash) + ":" + e.Expires.Format(DateLayout)
}

// NewEntry hashes password with bcrypt at the default cost.
func NewEntry(user string, password []byte, expires time.Time) (*Entry, error) {
	if user == "" || strings.ContainsAny(user, ":\n") {
		return nil, fmt.Errorf("passwd: invalid user name %q", user)
	}
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("passwd: hash password: %w", err)
	}
	return &Entry{User: user, Hash: hash, Expires: expires}, nil
}

// Parse reads password file lines. Blank lines and lines starting with '#'
// are skipped. A later entry for the same user replaces an earlier one.
func Parse(r io.Reader) (map[string]*Entry, error) {
	entries := make(map[string]*Entry)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries[e.User] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseLine(line string) (*Entry, error) {
	fields := strings.Split(line, ":")
	if len(fields) < 2 || len(fields) > 3 || fields[0] == "" || fields[1] == "" {
		return nil, ErrMalformed
	}

	if _, err := bcrypt.Cost([]byte(fields[1])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	e := &Entry{User: fields[0], Hash: []byte(fields[1])}
	if len(fields) == 3 && fields[2] != "" {
		exp, err := time.ParseInLocation(DateLayout, fields[2], time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: expiry %q", ErrMalformed, fields[2])
		}
		e.Expires = exp
	}
	return e, nil
}

// ReadFile parses the password file at path.
func ReadFile(path string) (map[string]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// WriteEntry adds e to the file at path, replacing any line for the same
// user. Comments and other users' lines are kept. The file is created with
// FilePermissions if missing and replaced atomically.
func WriteEntry(path string, e *Entry) error {
	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			if strings.HasPrefix(line, e.User+":") {
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", path, err)
	}
	lines = append(lines, e.String())

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")+"\n"), FilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
