package gqlserver

import (
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// FieldTypes contains known GraphQL types of fields.
type FieldTypes map[reflect.Type]graphql.Type

func (m FieldTypes) resolveType(typ reflect.Type) graphql.Type {
	if t := m[typ]; t != nil {
		if typ.Kind() == reflect.Pointer {
			return t
		}
		return toNonNull(t)
	}

	switch typ.Kind() {
	case reflect.Pointer:
		return graphql.GetNullable(m.resolveType(typ.Elem())).(graphql.Type)
	case reflect.Slice:
		return graphql.NewList(m.resolveType(typ.Elem()))
	case reflect.Bool:
		return NonNullBoolean
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return NonNullInt
	case reflect.Uint64:
		return NonNullUint64
	case reflect.Float32, reflect.Float64:
		return NonNullFloat
	case reflect.String:
		return NonNullString
	}

	logger.Panic("FieldTypes cannot resolve type", zap.Stringer("type", typ))
	return nil
}

// BindFields creates graphql.Fields from the JSON-tagged fields of struct T.
// Field resolvers accept either T or *T as source object.
// A field tagged `gqldesc:"..."` gets that description.
func BindFields[T any](m FieldTypes) graphql.Fields {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	fields := graphql.Fields{}
	for _, field := range reflect.VisibleFields(typ) {
		jsonTag, ok := field.Tag.Lookup("json")
		if !field.IsExported() || !ok || jsonTag == "-" {
			continue
		}
		tokens := strings.Split(jsonTag, ",")

		fieldType := m.resolveType(field.Type)
		if len(tokens) >= 2 && tokens[1] == "omitempty" {
			fieldType = graphql.GetNullable(fieldType).(graphql.Type)
		}

		index := field.Index
		fields[tokens[0]] = &graphql.Field{
			Description: field.Tag.Get("gqldesc"),
			Type:        fieldType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				v, e := reflect.Indirect(reflect.ValueOf(p.Source)).FieldByIndexErr(index)
				if e != nil {
					return nil, nil
				}
				return v.Interface(), nil
			},
		}
	}
	return fields
}
