// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.HealthResponse"}},
                    "503": {"description": "Snapshot store unavailable", "schema": {"$ref": "#/definitions/main.HealthResponse"}}
                }
            }
        },
        "/similar": {
            "post": {
                "description": "Ranks every other developer in the supplied activity by cosine similarity to the query developer and returns at most 15, most similar first.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["similarity"],
                "summary": "Find similar developers",
                "parameters": [
                    {"description": "Query developer and activity", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/main.SimilarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.SimilarResponse"}},
                    "400": {"description": "Malformed activity or request", "schema": {"$ref": "#/definitions/main.ErrorResponse"}},
                    "404": {"description": "Query developer not in activity", "schema": {"$ref": "#/definitions/main.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/main.ErrorResponse"}}
                }
            }
        },
        "/snapshots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "List stored snapshots",
                "parameters": [
                    {"type": "integer", "description": "Maximum entries (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.SnapshotListResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "Store an activity snapshot",
                "parameters": [
                    {"description": "Activity document", "name": "activity", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/database.Snapshot"}},
                    "400": {"description": "Malformed activity", "schema": {"$ref": "#/definitions/main.ErrorResponse"}}
                }
            }
        },
        "/snapshots/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "Snapshot metadata",
                "parameters": [
                    {"type": "string", "description": "Snapshot ID or latest", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/database.Snapshot"}},
                    "404": {"description": "Unknown snapshot", "schema": {"$ref": "#/definitions/main.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["snapshots"],
                "summary": "Delete a snapshot (admin)",
                "parameters": [
                    {"type": "string", "description": "Snapshot ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Unknown snapshot", "schema": {"$ref": "#/definitions/main.ErrorResponse"}}
                }
            }
        },
        "/snapshots/{id}/similar/{developer}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["snapshots", "similarity"],
                "summary": "Find similar developers in a stored snapshot",
                "parameters": [
                    {"type": "string", "description": "Snapshot ID or latest", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Query developer", "name": "developer", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.SimilarResponse"}},
                    "404": {"description": "Unknown snapshot or developer", "schema": {"$ref": "#/definitions/main.ErrorResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {"produces": ["application/json"], "tags": ["system"], "summary": "Service metrics", "responses": {"200": {"description": "OK"}}}
        },
        "/cache/stats": {
            "get": {"produces": ["application/json"], "tags": ["system"], "summary": "Response cache statistics", "responses": {"200": {"description": "OK"}}}
        },
        "/ratelimit/status": {
            "get": {"produces": ["application/json"], "tags": ["ratelimit"], "summary": "Limits for the calling IP", "responses": {"200": {"description": "OK"}}}
        },
        "/ratelimit/stats": {
            "get": {"produces": ["application/json"], "tags": ["ratelimit"], "summary": "Rate limiter statistics", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "main.SimilarRequest": {
            "type": "object",
            "required": ["query", "activity"],
            "properties": {
                "query": {"type": "string", "example": "dev@example.com"},
                "activity": {"type": "object", "description": "developer -> repository -> {languages, variables}"}
            }
        },
        "main.SimilarResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "snapshot_id": {"type": "string"},
                "count": {"type": "integer"},
                "similar": {"type": "object", "description": "developer -> score, most similar first", "additionalProperties": {"type": "number"}}
            }
        },
        "main.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "version": {"type": "string"},
                "store": {"type": "string"},
                "rate_limit_backend": {"type": "string"},
                "snapshots": {"type": "integer"}
            }
        },
        "main.SnapshotListResponse": {
            "type": "object",
            "properties": {
                "snapshots": {"type": "array", "items": {"$ref": "#/definitions/database.Snapshot"}},
                "count": {"type": "integer"}
            }
        },
        "database.Snapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "developers": {"type": "integer"},
                "size_bytes": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "main.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "DEVELOPER_NOT_FOUND"},
                "category": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Similar Developer Search API",
	Description:      "Ranks developers by cosine similarity of their aggregated language and identifier usage.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
