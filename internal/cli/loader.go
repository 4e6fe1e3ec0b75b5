package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/harness"
)

// LoadError represents an error that occurred while loading a document.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DocumentExtensions lists the file extensions LoadDocument accepts.
var DocumentExtensions = []string{".yaml", ".yml", ".json", ".cue"}

// LoadDocument reads a compile document. YAML and JSON are decoded
// directly; CUE is evaluated first and its concrete value exported as JSON.
// Unknown top-level fields are rejected.
func LoadDocument(path string) (*harness.Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading document: %v", err)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		return decodeDocument(data)
	case ".cue":
		exported, err := evaluateCUE(path, data)
		if err != nil {
			return nil, err
		}
		return decodeDocument(exported)
	default:
		return nil, &LoadError{
			Code:    ErrCodeUnsupportedFormat,
			Message: fmt.Sprintf("unsupported document extension %q, expected one of %v", ext, DocumentExtensions),
		}
	}
}

// decodeDocument decodes YAML, which includes JSON.
func decodeDocument(data []byte) (*harness.Document, error) {
	var doc harness.Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing document: %v", err)}
	}
	if doc.Expr == nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: "document has no expr"}
	}
	return &doc, nil
}

func evaluateCUE(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, "compiling CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "CUE document is not concrete", err)
	}
	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "exporting CUE", err)
	}
	return exported, nil
}

func cueLoadError(code, context string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeReadFailed        = "E002" // File read error
	ErrCodeUnsupportedFormat = "E003" // Unknown document extension
	ErrCodeParseFailed       = "E004" // YAML/JSON/CUE parse failed
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeBuildFailed       = "E006" // CUE evaluation failed
	ErrCodeWriteFailed       = "E007" // File write error

	// Compilation errors, one per geoerr code
	ErrCodeInvalidGeometry      = "E101" // INVALID_GEOMETRY_INPUT
	ErrCodeUnsupportedOperation = "E102" // UNSUPPORTED_OPERATION
	ErrCodeUnsupportedEngine    = "E103" // UNSUPPORTED_ENGINE
	ErrCodeMissingParameter     = "E104" // MISSING_AUXILIARY_PARAMETER

	// Database errors
	ErrCodeDatabase = "E201" // Open, ping, probe or DDL failure
)

// MapGeoErrorCode maps a compilation error to a CLI error code.
func MapGeoErrorCode(err error) string {
	switch geoerr.CodeOf(err) {
	case geoerr.CodeInvalidGeometryInput:
		return ErrCodeInvalidGeometry
	case geoerr.CodeUnsupportedOperation:
		return ErrCodeUnsupportedOperation
	case geoerr.CodeUnsupportedEngine:
		return ErrCodeUnsupportedEngine
	case geoerr.CodeMissingAuxiliaryParameter:
		return ErrCodeMissingParameter
	default:
		return ErrCodeGeneric
	}
}

// loadErrorCode extracts the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
