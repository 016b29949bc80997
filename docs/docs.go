// Package docs registers the OpenAPI document served under /swagger.
// swagger.json mirrors the swag annotations on the HTTP handlers.
package docs

import (
	_ "embed"
	"strings"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

// SwaggerInfo holds the values substituted into the embedded document
var SwaggerInfo = &Spec{
	Version:  "1.0",
	BasePath: "/api/v1",
}

// Spec implements swag.Swagger over the embedded document
type Spec struct {
	Version  string
	BasePath string
}

// ReadDoc returns the document with version and base path filled in
func (s *Spec) ReadDoc() string {
	return strings.NewReplacer(
		"{{.Version}}", s.Version,
		"{{.BasePath}}", s.BasePath,
	).Replace(swaggerJSON)
}

func init() {
	swag.Register(swag.Name, SwaggerInfo)
}
