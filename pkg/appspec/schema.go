package appspec

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.launcher.invalid/"

var (
	schemaOnce    sync.Once
	schemaErr     error
	sourceSchema  *jsonschema.Schema
	appInfoSchema *jsonschema.Schema
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	for _, name := range []string{"source.schema.json", "app-info.schema.json"} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = fmt.Errorf("read schema %s: %w", name, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(schemaBaseURL+name, doc); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", name, err)
			return
		}
	}
	if sourceSchema, schemaErr = c.Compile(schemaBaseURL + "source.schema.json"); schemaErr != nil {
		return
	}
	appInfoSchema, schemaErr = c.Compile(schemaBaseURL + "app-info.schema.json")
}

// ValidateSourceJSON checks a raw source.json document.
func ValidateSourceJSON(data []byte) error {
	return validate("source.json", data, func() *jsonschema.Schema { return sourceSchema })
}

// ValidateAppInfo checks a raw per-app metadata document.
func ValidateAppInfo(data []byte) error {
	return validate("app info", data, func() *jsonschema.Schema { return appInfoSchema })
}

func validate(document string, data []byte, schema func() *jsonschema.Schema) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return ValidationError{Document: document, Message: fmt.Sprintf("is not valid JSON: %v", err)}
	}
	if err := schema().Validate(inst); err != nil {
		return ValidationError{Document: document, Message: err.Error()}
	}
	return nil
}

// ValidatePackageJSON reports missing fields required to run an app.
func ValidatePackageJSON(pkg PackageJSON) error {
	var errs ValidationErrors
	if pkg.Name == "" {
		errs = append(errs, ValidationError{Document: "package.json", Field: "name", Message: "is missing"})
	}
	if pkg.Version == "" {
		errs = append(errs, ValidationError{Document: "package.json", Field: "version", Message: "is missing"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
