package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/custodian/pkg/retention"
)

// LoaderConfig controls which files the loader reads.
type LoaderConfig struct {
	// MaxFileSize is the largest definition file accepted, in bytes.
	MaxFileSize int64

	// Extensions are the definition file extensions.
	Extensions []string

	// SkipHidden ignores dot files and dot directories.
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize: 1 << 20,
		Extensions:  []string{".yaml", ".yml"},
		SkipHidden:  true,
	}
}

// Loader reads policy definitions from YAML files.
//
// A file holds one policy document, a document with a top-level
// "policies" list, or several "---" separated documents of either form:
//
//	id: mail-7y
//	name: Mail retention
//	owner_id: legal
//	scope:
//	  data_categories: [mail]
//	retention:
//	  duration: 7
//	  unit: years
//	schedule:
//	  frequency: monthly
//	  day_of_month: 1
//	  time: "03:00"
//
// Every definition needs a stable id; it is how a changed file finds the
// policy it describes.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

type definitionFile struct {
	Policies []*retention.Policy `yaml:"policies"`
}

// LoadFile decodes and validates the definitions in one file. Defaults are
// applied to each definition before validation.
func (l *Loader) LoadFile(path string) ([]*retention.Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	defs, err := decode(data)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "YAML parsing failed", Cause: err}
	}

	errList := &ErrorList{}
	valid := make([]*retention.Policy, 0, len(defs))
	seen := make(map[string]bool)
	for _, def := range defs {
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			errList.Add(&DefinitionError{FilePath: path, Cause: errors.New("id is required")})
			continue
		}
		if seen[def.ID] {
			errList.Add(&DefinitionError{FilePath: path, PolicyID: def.ID, Cause: errors.New("duplicate id")})
			continue
		}
		seen[def.ID] = true

		retention.ApplyDefaults(def)
		if err := retention.Validate(def); err != nil {
			errList.Add(&DefinitionError{FilePath: path, PolicyID: def.ID, Cause: err})
			continue
		}
		valid = append(valid, def)
	}
	return valid, errList.ToError()
}

func decode(data []byte) ([]*retention.Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var defs []*retention.Policy
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if len(node.Content) == 0 {
			continue
		}

		if hasKey(node.Content[0], "policies") {
			var file definitionFile
			if err := node.Decode(&file); err != nil {
				return nil, err
			}
			for _, p := range file.Policies {
				if p != nil {
					defs = append(defs, p)
				}
			}
			continue
		}

		var p retention.Policy
		if err := node.Decode(&p); err != nil {
			return nil, err
		}
		defs = append(defs, &p)
	}
	return defs, nil
}

func hasKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// LoadDir loads every definition file under dir. Definitions that load are
// returned together with an *ErrorList describing the ones that did not.
// An id defined in two files is an error; the first file in lexical order
// wins.
func (l *Loader) LoadDir(dir string) ([]*retention.Policy, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: dir, Message: "directory not found", Cause: err}
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to access directory", Cause: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{FilePath: dir, Message: "not a directory"}
	}

	files, err := l.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	var defs []*retention.Policy
	errList := &ErrorList{}
	origin := make(map[string]string)

	for _, path := range files {
		loaded, err := l.LoadFile(path)
		errList.Add(err)
		for _, def := range loaded {
			if first, ok := origin[def.ID]; ok {
				errList.Add(&DefinitionError{
					FilePath: path,
					PolicyID: def.ID,
					Cause:    fmt.Errorf("id already defined in %q", first),
				})
				continue
			}
			origin[def.ID] = path
			defs = append(defs, def)
		}
	}

	if errList.HasErrors() {
		return defs, errList
	}
	return defs, nil
}

func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.hasValidExtension(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
