package controllers

import (
	"go-order-graphql/src/graphql"
	"go-order-graphql/src/services/order/domain"

	"github.com/gofiber/fiber/v2"
)

type GraphQLController struct {
	handler *graphql.Handler
}

func NewGraphQLController(handler *graphql.Handler) *GraphQLController {
	return &GraphQLController{handler: handler}
}

func (c *GraphQLController) Route(app *fiber.App) {
	for _, path := range []string{"/", "/graphql"} {
		app.Post(path, c.Execute)
		app.Get(path, c.Playground)
	}
}

// Execute runs a GraphQL request. Operation errors are part of a 200
// response; an unreadable body or Authorized-User header is rejected at the
// HTTP level.
func (c *GraphQLController) Execute(ctx *fiber.Ctx) error {
	var req graphql.Request
	if err := ctx.BodyParser(&req); err != nil || req.Query == "" {
		return badRequest(ctx, "request body must be JSON with a query")
	}
	userCtx := ctx.UserContext()
	user, ok, err := authorizedUser(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	if ok {
		userCtx = domain.WithAuthorizedUser(userCtx, user)
	}
	result := c.handler.Execute(userCtx, req)
	return ctx.Status(fiber.StatusOK).JSON(result)
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"errors": []fiber.Map{{"message": message, "extensions": fiber.Map{"code": domain.CodeValidation}}},
	})
}

// Playground serves the GraphiQL IDE pointed at the same path.
func (c *GraphQLController) Playground(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(graphiQLPage)
}

const graphiQLPage = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Order GraphiQL</title>
    <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
  </head>
  <body style="margin: 0;">
    <div id="graphiql" style="height: 100vh;"></div>
    <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
    <script>
      const fetcher = GraphiQL.createFetcher({ url: window.location.pathname });
      ReactDOM.createRoot(document.getElementById('graphiql')).render(
        React.createElement(GraphiQL, { fetcher: fetcher }),
      );
    </script>
  </body>
</html>
`
