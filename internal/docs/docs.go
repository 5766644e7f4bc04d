// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "User authenticated and tokens generated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "423": {"description": "Account locked", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Refresh tokens",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.RefreshRequest"}}],
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/receipts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["receipts"],
                "summary": "Issue a receipt",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.IssueReceiptRequest"}}],
                "responses": {
                    "201": {"description": "Receipt issued"},
                    "400": {"description": "Invalid input, out of range, task mismatch or invalid amount", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Book not assigned to caller", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Duplicate number or book closed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/receipts/next-number": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["receipts"],
                "summary": "Next available receipt number",
                "description": "Advisory only: issuing may still fail with a duplicate if another collector is faster.\nThe suggestion is one past the highest issued number, so lower gaps are never suggested;\nonce the end number is used this returns RANGE_EXHAUSTED even if gaps remain issuable.",
                "parameters": [{"type": "string", "name": "book_id", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "Next number", "schema": {"$ref": "#/definitions/handlers.NextNumberResponse"}},
                    "409": {"description": "Range exhausted or book closed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/reports/published": {
            "get": {
                "tags": ["public"],
                "summary": "Latest published report",
                "responses": {
                    "200": {"description": "Latest report"},
                    "404": {"description": "Nothing published yet", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/reports/publish": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["reports"],
                "summary": "Publish a report",
                "responses": {
                    "201": {"description": "Published report"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/pipeline/reports/publish": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["pipeline"],
                "summary": "Publish a report (pipeline)",
                "responses": {
                    "201": {"description": "Published report"},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Pipeline not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "manager", "cash_collector"]},
                "is_active": {"type": "boolean"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.IssueReceiptRequest": {
            "type": "object",
            "required": ["book_id", "number"],
            "properties": {
                "book_id": {"type": "string"},
                "number": {"type": "integer"},
                "task_id": {"type": "string"},
                "giver_name": {"type": "string"},
                "address": {"type": "string"},
                "phone": {"type": "string"},
                "amount": {"type": "string", "example": "250.00"}
            }
        },
        "handlers.NextNumberResponse": {
            "type": "object",
            "properties": {
                "book_id": {"type": "string"},
                "next_number": {"type": "integer", "description": "one past the highest issued number", "example": 42}
            }
        },
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "kind": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Ledgerbook API",
	Description:      "Receipt books, donation receipts, expenses and published financial reports for a community fund.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
