package otp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// FilePermissions for the secrets file (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for the secrets directory.
	DirPermissions = 0700
)

var (
	// ErrNotEnrolled indicates the user has no TOTP secret.
	ErrNotEnrolled = errors.New("otp: user not enrolled")

	// ErrInsecureFile indicates the secrets file is readable by others.
	ErrInsecureFile = errors.New("otp: secrets file must not be accessible by group or others")
)

// Secret is one user's enrollment.
type Secret struct {
	Secret     string    `json:"secret"` // base32
	Digits     int       `json:"digits,omitempty"`
	Period     uint      `json:"period,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// File is the on-disk secrets document.
type File struct {
	Users map[string]*Secret `json:"users"`
}

// Store manages the TOTP secrets file.
type Store struct {
	path string
	file *File
}

// OpenStore loads the secrets file at path. A missing file yields an empty
// store; a file with group or other permission bits is rejected.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		s.file = &File{Users: make(map[string]*Secret)}
	}
	return s, nil
}

// load reads the secrets from disk.
func (s *Store) load() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("%w: %s has mode %v", ErrInsecureFile, s.path, info.Mode().Perm())
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	s.file = &File{}
	if err := json.Unmarshal(data, s.file); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	if s.file.Users == nil {
		s.file.Users = make(map[string]*Secret)
	}
	return nil
}

// save writes the secrets to disk.
func (s *Store) save() error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create secrets directory: %w", err)
	}

	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Get returns the user's enrollment.
func (s *Store) Get(user string) (*Secret, error) {
	sec, ok := s.file.Users[user]
	if !ok {
		return nil, ErrNotEnrolled
	}
	return sec, nil
}

// Set stores an enrollment and saves the file.
func (s *Store) Set(user string, sec *Secret) error {
	s.file.Users[user] = sec
	return s.save()
}

// Delete removes an enrollment and saves the file.
func (s *Store) Delete(user string) error {
	if _, ok := s.file.Users[user]; !ok {
		return ErrNotEnrolled
	}
	delete(s.file.Users, user)
	return s.save()
}

// Users returns enrolled user names in sorted order.
func (s *Store) Users() []string {
	names := make([]string, 0, len(s.file.Users))
	for name := range s.file.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
