// Package schema validates the YAML documents a shim reads at startup
// (manifest, compiler reference, project record) against embedded CUE
// definitions.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Definition names in schema.cue.
const (
	Compiler = "#Compiler"
	Project  = "#Project"
	Manifest = "#Manifest"
)

var (
	once    sync.Once
	cueCtx  *cue.Context
	root    cue.Value
	rootErr error
)

func load() (cue.Value, error) {
	once.Do(func() {
		cueCtx = cuecontext.New()
		root = cueCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		rootErr = root.Err()
	})
	return root, rootErr
}

// ValidationError reports a document that does not satisfy its definition.
type ValidationError struct {
	Definition string
	Messages   []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: invalid document", e.Definition)
	}
	if len(e.Messages) == 1 {
		return fmt.Sprintf("%s: %s", e.Definition, e.Messages[0])
	}
	return fmt.Sprintf("%s: %s (and %d more)", e.Definition, e.Messages[0], len(e.Messages)-1)
}

// Validate checks a decoded YAML document against the named definition.
func Validate(definition string, doc any) error {
	rootVal, err := load()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := rootVal.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("unknown schema definition %q", definition)
	}

	val := cueCtx.Encode(doc)
	if err := val.Err(); err != nil {
		return &ValidationError{Definition: definition, Messages: messages(err)}
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Definition: definition, Messages: messages(err)}
	}
	return nil
}

func messages(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

// Decode unmarshals YAML data, validates it against definition and decodes
// it into out.
func Decode(data []byte, definition string, out any) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return &ValidationError{Definition: definition, Messages: []string{"empty document"}}
	}
	if err := Validate(definition, doc); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// DecodeFile reads path and decodes it with Decode.
func DecodeFile(path, definition string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Decode(data, definition, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// IsValidationError reports whether err came from schema validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
