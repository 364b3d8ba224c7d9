// Package yamlflag decodes YAML documents into JSON-tagged structs, and provides a command line flag that accepts one.
package yamlflag

import (
	"encoding/json"
	"flag"
	"os"
	"reflect"

	"github.com/pktgraph/pktgraph/core/jsonhelper"
	"gopkg.in/yaml.v3"
)

// Decode unmarshals a YAML (or JSON) document into ptr.
// The document is converted through JSON, so that ptr's json struct tags and json.Unmarshaler implementations apply.
// Unknown fields are rejected.
func Decode(doc []byte, ptr any) error {
	var raw any
	if e := yaml.Unmarshal(doc, &raw); e != nil {
		return e
	}
	return jsonhelper.Roundtrip(raw, ptr, jsonhelper.DisallowUnknownFields)
}

// DecodeFile reads and decodes a YAML file.
func DecodeFile(filename string, ptr any) error {
	doc, e := os.ReadFile(filename)
	if e != nil {
		return e
	}
	return Decode(doc, ptr)
}

// New creates a flag.Value that recognizes a YAML document.
//
// The YAML document can be specified directly on the command line:
//
//	--flag="key: value"
//
// Or it can be read from a file, when the flag value starts with '@':
//
//	--flag=@file.yaml
//
// value must be a pointer. It panics otherwise.
func New(value any) flag.Getter {
	if val := reflect.ValueOf(value); val.Kind() != reflect.Pointer {
		panic(val.Kind())
	}
	return &yamlFlagValue{value}
}

type yamlFlagValue struct {
	Value any
}

func (v *yamlFlagValue) Get() any {
	return v.Value
}

func (v *yamlFlagValue) Set(s string) error {
	if len(s) >= 1 && s[0] == '@' {
		return DecodeFile(s[1:], v.Value)
	}
	return Decode([]byte(s), v.Value)
}

func (v *yamlFlagValue) String() string {
	if v == nil || v.Value == nil {
		return ""
	}
	j, _ := json.Marshal(v.Value)
	return string(j)
}
