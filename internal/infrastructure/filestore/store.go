// Package filestore guarda el XML timbrado en disco, un archivo por UUID.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
)

var uuidPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)

// Store directorio de XML timbrados.
type Store struct {
	dir string
}

// New crea el directorio si no existe.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("filestore: directorio vacío")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("filestore: crear directorio: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path ruta del XML de uuid.
func (s *Store) Path(uuid string) (string, error) {
	if !uuidPattern.MatchString(uuid) {
		return "", fmt.Errorf("%w: UUID %q", domain.ErrInvalidInput, uuid)
	}
	return filepath.Join(s.dir, strings.ToUpper(uuid)+".xml"), nil
}

// Save escribe el XML en un temporal con nombre aleatorio y lo renombra, así dos
// escrituras simultáneas nunca comparten archivo intermedio.
func (s *Store) Save(uuid, xml string) (string, error) {
	path, err := s.Path(uuid)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".cfdi-*.tmp")
	if err != nil {
		return "", fmt.Errorf("filestore: crear temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(xml); err != nil {
		tmp.Close()
		return "", fmt.Errorf("filestore: escribir: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("filestore: cerrar: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("filestore: renombrar: %w", err)
	}
	return path, nil
}

// Load lee el XML de uuid; domain.ErrNotFound si no existe.
func (s *Store) Load(uuid string) (string, error) {
	path, err := s.Path(uuid)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: XML %s", domain.ErrNotFound, uuid)
	}
	if err != nil {
		return "", fmt.Errorf("filestore: leer: %w", err)
	}
	return string(data), nil
}
