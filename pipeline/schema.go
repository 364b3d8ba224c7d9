package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchema indicates the configuration failed JSON schema validation.
var ErrSchema = errors.New("config failed schema validation")

//go:embed config.schema.json
var schemaText []byte

var schema = func() *gojsonschema.Schema {
	sch, e := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaText))
	if e != nil {
		panic(e)
	}
	return sch
}()

// Schema returns the JSON schema of Config.
func Schema() []byte {
	return schemaText
}

func checkSchema(cfg Config) error {
	result, e := schema.Validate(gojsonschema.NewGoLoader(cfg))
	if e != nil {
		return e
	}
	if result.Valid() {
		return nil
	}

	descs := []string{}
	for _, d := range result.Errors() {
		descs = append(descs, d.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(descs, "; "))
}
