package gqlserver

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	tools_scalars "github.com/bhoriuchi/graphql-go-tools/scalars"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Uint64 is a scalar type of unsigned 64-bit integer.
// It serializes as a JSON number and parses from either a number or a decimal string.
var Uint64 = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Uint64",
	Description: "Unsigned 64-bit integer.",
	Serialize: func(value any) any {
		switch v := reflect.ValueOf(value); v.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return v.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return uint64(v.Int())
		}
		return nil
	},
	ParseValue: func(value any) any {
		return parseUint64(fmt.Sprint(value))
	},
	ParseLiteral: func(valueAST ast.Value) any {
		switch v := valueAST.(type) {
		case *ast.IntValue:
			return parseUint64(v.Value)
		case *ast.StringValue:
			return parseUint64(v.Value)
		}
		return nil
	},
})

func parseUint64(s string) any {
	if n, e := strconv.ParseUint(s, 10, 64); e == nil {
		return n
	}
	// JSON variables arrive as float64, which may print in exponent form
	if f, e := strconv.ParseFloat(s, 64); e == nil && f >= 0 && f <= math.MaxUint64 && f == math.Trunc(f) {
		return uint64(f)
	}
	return nil
}

// Scalar types.
var (
	JSON = tools_scalars.ScalarJSON

	NonNullJSON    = graphql.NewNonNull(JSON)
	NonNullUint64  = graphql.NewNonNull(Uint64)
	NonNullID      = graphql.NewNonNull(graphql.ID)
	NonNullBoolean = graphql.NewNonNull(graphql.Boolean)
	NonNullInt     = graphql.NewNonNull(graphql.Int)
	NonNullFloat   = graphql.NewNonNull(graphql.Float)
	NonNullString  = graphql.NewNonNull(graphql.String)
)

func toNonNull(ofType graphql.Type) graphql.Type {
	if _, ok := ofType.(*graphql.NonNull); ok {
		return ofType
	}
	return graphql.NewNonNull(ofType)
}

// NewListNonNullBoth constructs [T!]! type.
func NewListNonNullBoth(ofType graphql.Type) graphql.Type {
	return graphql.NewNonNull(graphql.NewList(toNonNull(ofType)))
}
