// Package docs holds the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Current search page of the session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/search": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search books by title, author and genre",
                "parameters": [
                    {"in": "body", "name": "fields", "required": true, "schema": {"$ref": "#/definitions/SearchFields"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "400": {"description": "No search field filled", "schema": {"$ref": "#/definitions/APIError"}},
                    "502": {"description": "Catalog failure", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/book/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["book"],
                "summary": "Load the details of a book",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "404": {"description": "Unknown book", "schema": {"$ref": "#/definitions/APIError"}},
                    "502": {"description": "Catalog failure", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/book/{id}/favorite": {
            "post": {
                "produces": ["application/json"],
                "tags": ["book"],
                "summary": "Toggle the favorite membership of the loaded book",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "409": {"description": "Book details not loaded", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/book/{id}/notice": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["book"],
                "summary": "Dismiss the favorite confirmation notice",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "409": {"description": "Book details not loaded", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/favorites": {
            "get": {
                "produces": ["application/json"],
                "tags": ["favorites"],
                "summary": "List favorite books in insertion order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/favorites/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["favorites"],
                "summary": "Remove a book from favorites",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "SearchFields": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "author": {"type": "string"},
                "genre": {"type": "string"}
            }
        },
        "BookRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "authors": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"},
                "thumbnailUrl": {"type": "string"},
                "publisher": {"type": "string"},
                "publishedDate": {"type": "string"}
            }
        },
        "APIResponse": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "total": {"type": "integer"},
                "data": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "data": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Book Explorer API",
	Description:      "Search a public book catalog, read book details and keep favorites.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
