// Package logginggql exposes log levels via GraphQL.
package logginggql

import (
	"github.com/graphql-go/graphql"
	"github.com/pktgraph/pktgraph/core/gqlserver"
	"github.com/pktgraph/pktgraph/core/logging"
)

// GqlLoggerType is the GraphQL type of logging.PkgLevel.
var GqlLoggerType = graphql.NewObject(graphql.ObjectConfig{
	Name:   "Logger",
	Fields: gqlserver.BindFields[logging.PkgLevel](nil),
})

func init() {
	gqlserver.AddQuery(&graphql.Field{
		Name:        "loggers",
		Description: "Log levels.",
		Type:        gqlserver.NewListNonNullBoth(GqlLoggerType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return logging.Levels(), nil
		},
	})

	gqlserver.AddMutation(&graphql.Field{
		Name:        "setLogLevel",
		Description: "Change log level of a package.",
		Args: graphql.FieldConfigArgument{
			"package": &graphql.ArgumentConfig{
				Type: gqlserver.NonNullString,
			},
			"level": &graphql.ArgumentConfig{
				Description: "debug, info, warn, error, dpanic, panic, or fatal.",
				Type:        gqlserver.NonNullString,
			},
		},
		Type: graphql.NewNonNull(GqlLoggerType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			pkg, lvl := p.Args["package"].(string), p.Args["level"].(string)
			if e := logging.SetLevel(pkg, lvl); e != nil {
				return nil, e
			}
			for _, pl := range logging.Levels() {
				if pl.Package == pkg {
					return pl, nil
				}
			}
			return nil, logging.ErrNoLogger
		},
	})
}
