package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AnalysisRun",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"status":          &graphql.Field{Type: graphql.String},
			"cells_total":     &graphql.Field{Type: graphql.Int},
			"cells_evaluated": &graphql.Field{Type: graphql.Int},
			"candidate_count": &graphql.Field{Type: graphql.Int},
			"error":           &graphql.Field{Type: graphql.String},
		},
	})

	candidateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CandidateSite",
		Fields: graphql.Fields{
			"rank":      &graphql.Field{Type: graphql.Int},
			"location":  &graphql.Field{Type: geoPointType},
			"score":     &graphql.Field{Type: graphql.Float},
			"slope":     &graphql.Field{Type: graphql.Float},
			"curvature": &graphql.Field{Type: graphql.Float},
			"twi":       &graphql.Field{Type: graphql.Float},
			"flow_acc":  &graphql.Field{Type: graphql.Float},
			"reason":    &graphql.Field{Type: graphql.String},
		},
	})

	watershedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Watershed",
		Fields: graphql.Fields{
			"code":     &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"area_km2": &graphql.Field{Type: graphql.Float},
		},
	})

	terrainPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TerrainPoint",
		Fields: graphql.Fields{
			"location":  &graphql.Field{Type: geoPointType},
			"elevation": &graphql.Field{Type: graphql.Float},
			"slope":     &graphql.Field{Type: graphql.Float},
			"twi":       &graphql.Field{Type: graphql.Float},
			"source":    &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"analyses": &graphql.Field{
				Type:        graphql.NewList(runType),
				Description: "List analysis runs, newest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					runs, _, err := deps.Analysis.ListRuns(p.Context, 0, limit)
					return runs, err
				},
			},
			"analysis": &graphql.Field{
				Type:        runType,
				Description: "Get an analysis run by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Analysis.GetRun(p.Context, p.Args["id"].(string))
				},
			},
			"candidates": &graphql.Field{
				Type:        graphql.NewList(candidateType),
				Description: "Candidate sites of a run, by rank",
				Args: graphql.FieldConfigArgument{
					"run_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					runID := p.Args["run_id"].(string)
					limit := p.Args["limit"].(int)
					sites, _, err := deps.Analysis.ListCandidates(p.Context, runID, 0, limit)
					return sites, err
				},
			},
			"watersheds": &graphql.Field{
				Type:        graphql.NewList(watershedType),
				Description: "List basin boundaries",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Watersheds == nil {
						return nil, nil
					}
					return deps.Watersheds.List(p.Context)
				},
			},
			"watershed": &graphql.Field{
				Type:        watershedType,
				Description: "Get a basin by code",
				Args: graphql.FieldConfigArgument{
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Watersheds == nil {
						return nil, nil
					}
					return deps.Watersheds.GetByCode(p.Context, p.Args["code"].(string))
				},
			},
			"terrain": &graphql.Field{
				Type:        terrainPointType,
				Description: "Sample terrain metrics at a coordinate",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					return deps.Query.QueryPoint(p.Context, lon, lat)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
