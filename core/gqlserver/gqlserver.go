// Package gqlserver provides a GraphQL server.
// It is a singleton and is initialized via init() functions.
package gqlserver

import (
	"net/http"

	"github.com/bhoriuchi/graphql-go-tools/handler"
	"github.com/graphql-go/graphql"
	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/version"
	"go.uber.org/zap"
)

var logger = logging.New("gqlserver")

// Schema is the singleton of graphql.SchemaConfig.
// It is available until Prepare() is called.
var Schema = &graphql.SchemaConfig{
	Query: graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: graphql.Fields{},
	}),
	Mutation: graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: graphql.Fields{},
	}),
}

// AddQuery adds a top-level query field.
func AddQuery(f *graphql.Field) {
	Schema.Query.AddFieldConfig(f.Name, f)
}

// AddMutation adds a top-level mutation field.
func AddMutation(f *graphql.Field) {
	Schema.Mutation.AddFieldConfig(f.Name, f)
}

func init() {
	AddQuery(&graphql.Field{
		Name:        "version",
		Description: "pktgraph version.",
		Type:        NonNullString,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return version.V.String(), nil
		},
	})
}

var schema *graphql.Schema

// Prepare compiles the schema.
// It panics if the schema is invalid.
func Prepare() *graphql.Schema {
	if schema != nil {
		return schema
	}

	sch, e := graphql.NewSchema(*Schema)
	if e != nil {
		logger.Panic("graphql.NewSchema error", zap.Error(e))
	}
	schema, Schema = &sch, nil
	return schema
}

// Handler returns an http.Handler serving GraphQL queries and the playground.
func Handler() http.Handler {
	return handler.New(&handler.Config{
		Schema:           Prepare(),
		Pretty:           true,
		PlaygroundConfig: handler.NewDefaultPlaygroundConfig(),
	})
}

// Do executes a query against the compiled schema.
// This is mainly useful in tests.
func Do(query string, vars map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         *Prepare(),
		RequestString:  query,
		VariableValues: vars,
	})
}
