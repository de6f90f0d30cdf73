// Package docs serves the OpenAPI description of the slotify API at /swagger.
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
        "/activities/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["activities"],
                "summary": "Get an activity with its schedule and ticket types",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/activities/{id}/slots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "List candidate slots for a date with availability",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "date", "name": "date", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/activities/{id}/slots/check": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Check a single slot",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "date", "name": "date", "in": "query", "required": true},
                    {"type": "string", "name": "start", "in": "query", "required": true},
                    {"type": "string", "name": "end", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/activities/{id}/next-available-date": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Find the first date with a free slot",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "date", "name": "from", "in": "query", "required": true},
                    {"type": "integer", "name": "maxDays", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/pricing/quote": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pricing"],
                "summary": "Price a party with optional promo code and gift card",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/reservations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Create a pending reservation and request a payment intent",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Slot no longer available"},
                    "422": {"description": "Promo code or gift card rejected"},
                    "502": {"description": "Payment gateway failed; reservation stays pending"}
                }
            }
        },
        "/reservations/{id}/cancel": {
            "post": {
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Cancel a reservation and free its slot",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/realtime/activities/{id}/stream": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["realtime"],
                "summary": "Stream debounced availability change notifications",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Slotify Reservation API",
	Description:      "Slot availability, pricing and reservations for timed activities.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
