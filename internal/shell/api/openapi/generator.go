// Package openapi provides reflective OpenAPI 3.0 specification generation.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on registered
// resources and actions.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	resources   []ResourceInfo
	actions     []ActionInfo
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// ResourceInfo holds information about a registered JSON:API resource.
type ResourceInfo struct {
	Name           string      // Resource type name (e.g., "plans")
	Model          interface{} // The model struct for schema extraction
	SupportsFind   bool        // GET /{type} and GET /{type}/{id}
	SupportsCreate bool        // POST /{type}
	SupportsUpdate bool        // PATCH /{type}/{id}
	SupportsDelete bool        // DELETE /{type}/{id}
}

// ActionInfo describes a plain JSON route outside the JSON:API resources.
// Path is relative to the server URL and may carry {name} parameters.
type ActionInfo struct {
	Method  string
	Path    string
	Summary string
	Tag     string
	Body    interface{} // request body model, nil for none
	Query   []string    // optional string query parameters
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:   "Harvest Planning API",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(g)
	}
	if len(g.servers) == 0 {
		g.servers = []string{"/api/v1"}
	}
	return g
}

// RegisterResource adds a resource to the generator.
func (g *Generator) RegisterResource(info ResourceInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resources = append(g.resources, info)
	g.cachedSpec = nil
}

// RegisterAction adds a custom action route to the generator.
func (g *Generator) RegisterAction(info ActionInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, info)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 specification.
// The result is cached until the next registration.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}
	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	addCommonSchemas(spec)
	for _, res := range g.resources {
		addResource(spec, res)
	}
	for _, action := range g.actions {
		addAction(spec, action)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI specification.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

func typed(t string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{t}}}
}

func ref(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["PaginationMeta"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"total":  typed("integer"),
				"limit":  typed("integer"),
				"offset": typed("integer"),
			},
		},
	}

	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"errors": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								Properties: openapi3.Schemas{
									"status": typed("string"),
									"title":  typed("string"),
									"detail": typed("string"),
								},
							},
						},
					},
				},
			},
		},
	}

	// Action responses are {data, meta} with free-form data.
	spec.Components.Schemas["ActionResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"data": typed("object"),
				"meta": typed("object"),
			},
		},
	}
}

// addResource adds paths and schemas for a JSON:API resource.
func addResource(spec *openapi3.T, res ResourceInfo) {
	basePath := "/" + res.Name
	schemaName := capitalize(singularize(res.Name))

	spec.Components.Schemas[schemaName+"Attributes"] = extractSchema(res.Model)
	spec.Components.Schemas[schemaName] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"type": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"string"},
						Enum: []interface{}{res.Name},
					},
				},
				"id":         typed("string"),
				"attributes": ref(schemaName + "Attributes"),
			},
			Required: []string{"type", "id"},
		},
	}
	spec.Components.Schemas[schemaName+"Response"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"data": ref(schemaName),
			},
		},
	}
	spec.Components.Schemas[schemaName+"ListResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"data": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: ref(schemaName),
					},
				},
				"meta": ref("PaginationMeta"),
			},
		},
	}

	tag := capitalize(res.Name)

	collection := &openapi3.PathItem{}
	if res.SupportsFind {
		collection.Get = &openapi3.Operation{
			OperationID: "list" + tag,
			Summary:     "List " + res.Name,
			Tags:        []string{tag},
			Parameters:  pageParameters(),
			Responses:   responses(http.StatusOK, schemaName+"ListResponse"),
		}
	}
	if res.SupportsCreate {
		collection.Post = &openapi3.Operation{
			OperationID: "create" + schemaName,
			Summary:     "Create a " + singularize(res.Name),
			Tags:        []string{tag},
			RequestBody: jsonAPIBody(schemaName + "Response"),
			Responses:   responses(http.StatusCreated, schemaName+"Response"),
		}
	}
	spec.Paths.Set(basePath, collection)

	item := &openapi3.PathItem{
		Parameters: openapi3.Parameters{pathParameter("id")},
	}
	if res.SupportsFind {
		item.Get = &openapi3.Operation{
			OperationID: "get" + schemaName,
			Summary:     "Get a " + singularize(res.Name),
			Tags:        []string{tag},
			Responses:   responses(http.StatusOK, schemaName+"Response"),
		}
	}
	if res.SupportsUpdate {
		item.Patch = &openapi3.Operation{
			OperationID: "update" + schemaName,
			Summary:     "Update a " + singularize(res.Name),
			Tags:        []string{tag},
			RequestBody: jsonAPIBody(schemaName + "Response"),
			Responses:   responses(http.StatusOK, schemaName+"Response"),
		}
	}
	if res.SupportsDelete {
		item.Delete = &openapi3.Operation{
			OperationID: "delete" + schemaName,
			Summary:     "Delete a " + singularize(res.Name),
			Tags:        []string{tag},
			Responses:   responses(http.StatusNoContent, ""),
		}
	}
	spec.Paths.Set(basePath+"/{id}", item)
}

// addAction adds a custom action route.
func addAction(spec *openapi3.T, action ActionInfo) {
	op := &openapi3.Operation{
		OperationID: operationID(action),
		Summary:     action.Summary,
		Tags:        []string{action.Tag},
		Responses:   responses(http.StatusOK, "ActionResponse"),
	}

	for _, segment := range strings.Split(action.Path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			op.Parameters = append(op.Parameters, pathParameter(strings.Trim(segment, "{}")))
		}
	}
	for _, q := range action.Query {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{Name: q, In: "query", Schema: typed("string")},
		})
	}
	if action.Body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.Content{
					"application/json": &openapi3.MediaType{Schema: extractSchema(action.Body)},
				},
			},
		}
	}

	item := spec.Paths.Value(action.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		spec.Paths.Set(action.Path, item)
	}
	item.SetOperation(action.Method, op)
}

// extractSchema extracts an OpenAPI schema from a Go struct.
func extractSchema(model interface{}) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	// Types with custom JSON encodings are left open.
	if t.Implements(reflect.TypeOf((*json.Marshaler)(nil)).Elem()) && t != reflect.TypeOf(time.Time{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}

	switch t.Kind() {
	case reflect.String:
		return typed("string")

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return typed("integer")

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return typed("boolean")

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return extractSchema(reflect.New(t).Interface())

	default:
		return typed("object")
	}
}

// =============================================================================
// Operation Helpers
// =============================================================================

func responses(status int, schemaName string) *openapi3.Responses {
	ok := http.StatusText(status)
	resp := &openapi3.Response{Description: &ok}
	if schemaName != "" {
		resp.Content = openapi3.Content{
			"application/vnd.api+json": &openapi3.MediaType{Schema: ref(schemaName)},
		}
	}

	failed := "Error"
	out := &openapi3.Responses{}
	out.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	out.Set("default", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &failed,
			Content: openapi3.Content{
				"application/vnd.api+json": &openapi3.MediaType{Schema: ref("Error")},
			},
		},
	})
	return out
}

func jsonAPIBody(schemaName string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content: openapi3.Content{
				"application/vnd.api+json": &openapi3.MediaType{Schema: ref(schemaName)},
			},
		},
	}
}

func pathParameter(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   typed("string"),
		},
	}
}

func pageParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name: "page[size]",
				In:   "query",
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Default: 100},
				},
			},
		},
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name: "page[number]",
				In:   "query",
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Default: 1},
				},
			},
		},
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{Name: "plan", In: "query", Schema: typed("string")},
		},
	}
}

// operationID builds e.g. "postPlansTasksPlace" from POST /plans/{plan}/tasks/{id}/place.
func operationID(action ActionInfo) string {
	id := strings.ToLower(action.Method)
	for _, segment := range strings.Split(strings.Trim(action.Path, "/"), "/") {
		if strings.HasPrefix(segment, "{") {
			continue
		}
		id += capitalize(segment)
	}
	return id
}

// capitalize returns the string with the first letter capitalized.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// singularize performs basic singularization (removes trailing 's').
func singularize(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "s") {
		return s[:len(s)-1]
	}
	return s
}
