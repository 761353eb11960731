package openapi

import (
	"fmt"
	"strings"

	settings "github.com/goliatone/go-settings"
)

// tokenHeader carries the action token of the values routes.
const tokenHeader = "X-Settings-Nonce"

// operation is one documented route below the group path.
type operation struct {
	suffix    string
	method    string
	action    string
	summary   string
	params    []any
	body      map[string]any
	responses map[string]any
}

func (g *Generator) document(group string, descriptors []settings.FieldDescriptor) map[string]any {
	comps := newComponents()
	values := map[string]any{"$ref": comps.add(g.rootName(group), valuesSchema(descriptors, comps))}

	paths := map[string]any{}
	for _, op := range g.operations(group, values) {
		path := g.pathFor(group) + op.suffix
		item, _ := paths[path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[path] = item
		}
		entry := map[string]any{
			"operationId": op.action + pascalCase(group) + "Settings",
			"summary":     op.summary,
			"responses":   op.responses,
		}
		if len(op.params) > 0 {
			entry["parameters"] = op.params
		}
		if op.body != nil {
			entry["requestBody"] = op.body
		}
		item[op.method] = entry
	}

	info := map[string]any{"title": g.title, "version": g.version}
	if g.description != "" {
		info["description"] = g.description
	}
	return map[string]any{
		"openapi":    g.specVersion,
		"info":       info,
		"paths":      paths,
		"components": map[string]any{"schemas": comps.schemas},
	}
}

func (g *Generator) operations(group string, values map[string]any) []operation {
	headerToken := map[string]any{"name": tokenHeader, "in": "header", "required": true, "schema": stringType()}
	forbidden := response("Action failed.")
	return []operation{
		{
			method:  "post",
			action:  "save",
			summary: "Save the settings form",
			body: formBody(map[string]any{
				"option_page": map[string]any{"type": "string", "enum": []any{group}},
				"_wpnonce":    stringType(),
			}, []string{"option_page", "_wpnonce"}, nil),
			responses: map[string]any{
				"303": response("Saved; redirects back to the page"),
				"403": forbidden,
				"422": response("Validation failed; the page is rendered with errors"),
			},
		},
		{
			suffix:  "/export",
			method:  "get",
			action:  "export",
			summary: "Download the stored values",
			params:  []any{map[string]any{"name": "_wpnonce", "in": "query", "required": true, "schema": stringType()}},
			responses: map[string]any{
				"200": jsonResponse("Stored values keyed by storage key", values),
				"403": forbidden,
			},
		},
		{
			suffix:  "/import",
			method:  "post",
			action:  "import",
			summary: "Replace the stored values",
			body: formBody(map[string]any{
				"_wpnonce":     stringType(),
				"option_group": map[string]any{"type": "string", "enum": []any{group}},
				"settings":     values,
			}, []string{"_wpnonce", "option_group", "settings"}, map[string]any{
				"settings": map[string]any{"contentType": "application/json"},
			}),
			responses: map[string]any{
				"200": jsonResponse("Import outcome", map[string]any{
					"type":       "object",
					"properties": map[string]any{"success": map[string]any{"type": "boolean"}},
				}),
			},
		},
		{
			suffix:  "/values",
			method:  "get",
			action:  "get",
			summary: "Read the stored values merged with defaults",
			responses: map[string]any{
				"200": withHeaders(jsonResponse("Materialized values", map[string]any{"type": "object"}), map[string]any{
					"ETag":      map[string]any{"schema": stringType()},
					tokenHeader: map[string]any{"schema": stringType()},
				}),
			},
		},
		{
			suffix:  "/values",
			method:  "patch",
			action:  "patch",
			summary: "Merge values into the stored blob",
			params: []any{
				headerToken,
				map[string]any{"name": "If-Match", "in": "header", "schema": stringType()},
			},
			body: map[string]any{
				"required": true,
				"content":  map[string]any{"application/json": map[string]any{"schema": values}},
			},
			responses: map[string]any{
				"200": response("Values merged"),
				"400": response("Body is not a JSON object"),
				"403": forbidden,
				"409": response("Stored values changed since they were read"),
				"422": response("Validation failed"),
			},
		},
		{
			suffix:  "/values",
			method:  "delete",
			action:  "delete",
			summary: "Remove the stored record",
			params:  []any{headerToken},
			responses: map[string]any{
				"204": response("Record removed"),
				"403": forbidden,
			},
		},
		{
			suffix:  "/schema",
			method:  "get",
			action:  "describe",
			summary: "This document",
			responses: map[string]any{
				"200": jsonResponse("OpenAPI document", map[string]any{"type": "object"}),
			},
		},
	}
}

func stringType() map[string]any {
	return map[string]any{"type": "string"}
}

func response(description string) map[string]any {
	return map[string]any{"description": description}
}

func jsonResponse(description string, schema map[string]any) map[string]any {
	return map[string]any{
		"description": description,
		"content":     map[string]any{"application/json": map[string]any{"schema": schema}},
	}
}

func withHeaders(resp map[string]any, headers map[string]any) map[string]any {
	resp["headers"] = headers
	return resp
}

func formBody(props map[string]any, required []string, encoding map[string]any) map[string]any {
	media := map[string]any{
		"schema": map[string]any{
			"type":                 "object",
			"required":             required,
			"properties":           props,
			"additionalProperties": true,
		},
	}
	if encoding != nil {
		media["encoding"] = encoding
	}
	return map[string]any{
		"required": true,
		"content":  map[string]any{"multipart/form-data": media},
	}
}

// validateDocument checks the structure every consumer relies on: version,
// info, and for each operation an id, responses, and content when a request
// body is declared.
func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document is nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	for _, field := range []string{"title", "version"} {
		if value, _ := info[field].(string); value == "" {
			return fmt.Errorf("openapi: info.%s must be set", field)
		}
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for _, path := range sortedKeys(paths) {
		item, _ := paths[path].(map[string]any)
		if len(item) == 0 {
			return fmt.Errorf("openapi: path %q has no operations", path)
		}
		for _, method := range sortedKeys(item) {
			op, _ := item[method].(map[string]any)
			where := strings.ToUpper(method) + " " + path
			if op == nil {
				return fmt.Errorf("openapi: %s is not an object", where)
			}
			if id, _ := op["operationId"].(string); id == "" {
				return fmt.Errorf("openapi: %s missing operationId", where)
			}
			if responses, _ := op["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: %s missing responses", where)
			}
			if body, ok := op["requestBody"].(map[string]any); ok {
				if content, _ := body["content"].(map[string]any); len(content) == 0 {
					return fmt.Errorf("openapi: %s requestBody has no content", where)
				}
			}
		}
	}
	return nil
}
