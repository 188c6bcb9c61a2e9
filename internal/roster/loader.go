// Package roster loads the static patient list read once at startup.
package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clinic-call-queue/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Entry is one patient as written in the roster document
type Entry struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	ServiceType string `json:"service_type" yaml:"service_type" validate:"required"`
	Priority    string `json:"priority" yaml:"priority" validate:"required,priority"`
}

// Document is the roster file layout
type Document struct {
	Patients []Entry `json:"patients" yaml:"patients" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		_, ok := models.ParsePriority(fl.Field().String())
		return ok
	})
	return v
}

// LoadFile reads a roster from path. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON.
func LoadFile(path string) ([]models.Patient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON roster document
func ParseJSON(data []byte) ([]models.Patient, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed roster: %w", err)
	}
	return doc.toPatients()
}

// ParseYAML decodes a YAML roster document
func ParseYAML(data []byte) ([]models.Patient, error) {
	var doc Document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("malformed roster: %w", err)
	}
	return doc.toPatients()
}

// toPatients validates every entry; one bad entry rejects the whole document
func (d Document) toPatients() ([]models.Patient, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("malformed roster: %w", err)
	}

	patients := make([]models.Patient, len(d.Patients))
	for i, e := range d.Patients {
		priority, _ := models.ParsePriority(e.Priority)
		patients[i] = models.Patient{
			Name:        strings.TrimSpace(e.Name),
			ServiceType: e.ServiceType,
			Priority:    priority,
			Status:      models.StatusWaiting,
		}
	}
	return patients, nil
}
