// Package gqlclient provides a GraphQL client for the management endpoint.
package gqlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/machinebox/graphql"
)

func parseResultData(j json.RawMessage, key string, ptr any) error {
	if key == "" {
		return json.Unmarshal(j, ptr)
	}

	m := map[string]json.RawMessage{}
	if e := json.Unmarshal(j, &m); e != nil {
		return e
	}
	field, ok := m[key]
	if !ok {
		return fmt.Errorf("result has no field %q", key)
	}
	return json.Unmarshal(field, ptr)
}

// Config contains Client configuration.
type Config struct {
	// HTTPUri is the GraphQL endpoint URI.
	HTTPUri string

	HTTPClient *http.Client
}

// ApplyDefaults normalizes the URI and fills in the HTTP client.
func (cfg *Config) ApplyDefaults() error {
	u, e := url.Parse(cfg.HTTPUri)
	if e != nil {
		return fmt.Errorf("HTTPUri: %w", e)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("HTTPUri: unsupported scheme %q", u.Scheme)
	}
	cfg.HTTPUri = u.String()

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return nil
}

// Client is a GraphQL client.
type Client struct {
	cfg  Config
	http *graphql.Client
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Do executes a query or mutation.
//  query: a GraphQL document.
//  vars: query variables.
//  key: if non-empty, unmarshal result.data[key] instead of result.data.
//  res: pointer to result struct.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, key string, res any) error {
	request := graphql.NewRequest(query)
	for k, v := range vars {
		request.Var(k, v)
	}

	var response json.RawMessage
	if e := c.http.Run(ctx, request, &response); e != nil {
		return e
	}
	if res == nil {
		return nil
	}
	return parseResultData(response, key, res)
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if e := cfg.ApplyDefaults(); e != nil {
		return nil, e
	}
	return &Client{
		cfg:  cfg,
		http: graphql.NewClient(cfg.HTTPUri, graphql.WithHTTPClient(cfg.HTTPClient)),
	}, nil
}
