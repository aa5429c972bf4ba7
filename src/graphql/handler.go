package graphql

import (
	"context"
	"encoding/json"
	"fmt"

	"go-order-graphql/src/services/order/domain"

	gql "github.com/graphql-go/graphql"
)

// Request is the body of a GraphQL HTTP request.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type Handler struct {
	schema gql.Schema
}

func NewHandler(r *Resolver) (*Handler, error) {
	schema, err := NewSchema(r)
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}
	return &Handler{schema: schema}, nil
}

// Execute runs one request. Failures are reported in the result's errors,
// each with an extensions code.
func (h *Handler) Execute(ctx context.Context, req Request) *gql.Result {
	result := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	tagUncodedErrors(result)
	return result
}

// tagUncodedErrors codes the errors the executor raises itself. Without data
// the request never ran: it failed to parse, validate or coerce variables.
func tagUncodedErrors(result *gql.Result) {
	code := codeInternal
	if result.Data == nil {
		code = domain.CodeValidation
	}
	for i := range result.Errors {
		if _, ok := result.Errors[i].Extensions["code"]; ok {
			continue
		}
		if result.Errors[i].Extensions == nil {
			result.Errors[i].Extensions = map[string]interface{}{}
		}
		result.Errors[i].Extensions["code"] = code
	}
}

// IntrospectionJSON returns the result of the standard introspection query,
// the format schema tooling consumes.
func (h *Handler) IntrospectionJSON(ctx context.Context) ([]byte, error) {
	result := h.Execute(ctx, Request{Query: introspectionQuery})
	if result.HasErrors() {
		return nil, fmt.Errorf("introspection failed: %v", result.Errors)
	}
	return json.MarshalIndent(result, "", "  ")
}

const introspectionQuery = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
    directives {
      name
      description
      locations
      args { ...InputValue }
    }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated
    deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) {
    name
    description
    isDeprecated
    deprecationReason
  }
  possibleTypes { ...TypeRef }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
    }
  }
}
`
