// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tables

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FileSource loads Tables from a YAML file.
//
//	credentials:
//	  bob: dylan
//	permissions:
//	  topic1:
//	    bob: {subscribe: true, publish: true}
type FileSource struct {
	path           string
	validateSchema bool
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithSchemaValidation validates the file against the tables JSON Schema before decoding.
func WithSchemaValidation(enabled bool) FileOption {
	return func(f *FileSource) {
		f.validateSchema = enabled
	}
}

// NewFileSource creates a FileSource reading path on every Load.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	f := &FileSource{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Source.
func (f *FileSource) Name() string {
	return "file:" + f.path
}

// Load implements Source.
func (f *FileSource) Load(_ context.Context) (Tables, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Tables{}, oops.In("tables").Code("TABLES_NOT_FOUND").With("path", f.path).Wrap(ErrNotFound)
		}
		return Tables{}, oops.In("tables").Code("TABLES_READ_FAILED").With("path", f.path).Wrap(err)
	}
	return Parse(data, f.validateSchema)
}

// Parse decodes YAML tables, optionally validating them against the schema first.
func Parse(data []byte, validateSchema bool) (Tables, error) {
	if validateSchema {
		if err := ValidateSchema(data); err != nil {
			return Tables{}, oops.In("tables").Code("TABLES_SCHEMA_INVALID").Wrap(err)
		}
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, oops.In("tables").Code("TABLES_PARSE_FAILED").Wrap(err)
	}
	return t, nil
}

// Marshal encodes t as YAML.
func Marshal(t Tables) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, oops.In("tables").Code("TABLES_ENCODE_FAILED").Wrap(err)
	}
	return data, nil
}
