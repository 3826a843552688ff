package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractYAML []byte

// Schema names in the embedded contract.
const (
	SchemaResume            = "Resume"
	SchemaTemplateCatalog   = "TemplateCatalog"
	SchemaTemplateSelection = "TemplateSelection"
)

// Contract is the OpenAPI description of the storage API. Request bodies are
// validated against its component schemas before they reach the store.
type Contract struct {
	doc *openapi3.T
}

// ContractYAML returns the embedded OpenAPI document.
func ContractYAML() []byte {
	return append([]byte(nil), contractYAML...)
}

// LoadContract parses and validates the embedded OpenAPI document.
func LoadContract(ctx context.Context) (*Contract, error) {
	return ParseContract(ctx, contractYAML)
}

// ParseContract parses data as an OpenAPI 3 document. It must define the
// schemas the handlers validate against.
func ParseContract(ctx context.Context, data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("api: load contract: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("api: validate contract: %w", err)
	}

	contract := &Contract{doc: doc}
	for _, name := range []string{SchemaResume, SchemaTemplateCatalog, SchemaTemplateSelection} {
		if _, err := contract.schema(name); err != nil {
			return nil, err
		}
	}
	return contract, nil
}

// Paths lists the route templates described by the contract.
func (c *Contract) Paths() []string {
	if c == nil || c.doc.Paths == nil {
		return nil
	}
	return c.doc.Paths.InMatchingOrder()
}

// Validate checks body against the named schema. Schema violations are
// returned as field errors keyed by JSON pointer ("/experiences/1/url"), with
// violations on the document itself under "detail". A body that is not JSON
// returns a plain error.
func (c *Contract) Validate(name string, body []byte) (map[string][]string, error) {
	schema, err := c.schema(name)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", name, err)
	}

	err = schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil, nil
	}
	return fieldErrors(err), nil
}

func (c *Contract) schema(name string) (*openapi3.Schema, error) {
	if c == nil || c.doc == nil || c.doc.Components == nil {
		return nil, fmt.Errorf("api: contract has no components")
	}
	ref, ok := c.doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("api: contract has no %q schema", name)
	}
	return ref.Value, nil
}

func fieldErrors(err error) map[string][]string {
	out := make(map[string][]string)
	var collect func(error)
	collect = func(err error) {
		var multi openapi3.MultiError
		if errors.As(err, &multi) {
			for _, inner := range multi {
				collect(inner)
			}
			return
		}
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) {
			key := "detail"
			if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
				key = "/" + strings.Join(pointer, "/")
			}
			reason := schemaErr.Reason
			if reason == "" {
				reason = "value does not match the schema"
			}
			out[key] = append(out[key], reason)
			return
		}
		out["detail"] = append(out["detail"], err.Error())
	}
	collect(err)
	return out
}
