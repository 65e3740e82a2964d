// Package docs holds the generated OpenAPI description of the HTTP service.
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
		"/cache": {
			"delete": {
				"tags": [
					"system"
				],
				"summary": "Drop every cached response",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Service health",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/metrics": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Service metrics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/cache/stats": {
			"get": {
				"tags": [
					"system"
				],
				"summary": "Response cache statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/v1/score": {
			"post": {
				"tags": [
					"scoring"
				],
				"summary": "Score measured signals",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Signals and context",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/analyze": {
			"post": {
				"tags": [
					"scoring"
				],
				"summary": "Run an orchestrated analysis",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					},
					"422": {
						"description": "Analysis failed; body carries the partial result",
						"schema": {
							"type": "object"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Creative, context and token budget",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/validate": {
			"post": {
				"tags": [
					"validation"
				],
				"summary": "Check signals for impossible values and contradictions",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Signals",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/differentiation": {
			"post": {
				"tags": [
					"differentiation"
				],
				"summary": "Measure how distinct a creative is from category defaults",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Copy text and signals",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/compare": {
			"post": {
				"tags": [
					"comparison"
				],
				"summary": "Compare two creatives",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Two creatives",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/percentile": {
			"post": {
				"tags": [
					"comparison"
				],
				"summary": "Place a score in its category distribution",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.AppError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Score and category",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				]
			}
		},
		"/v1/rules": {
			"get": {
				"tags": [
					"differentiation"
				],
				"summary": "Active differentiation rule set",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"errors.AppError": {
			"type": "object",
			"properties": {
				"category": {
					"type": "string"
				},
				"http_status": {
					"type": "integer"
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				},
				"timestamp": {
					"type": "string"
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:		  "1.0",
	Host:			 "",
	BasePath:		 "/",
	Schemes:		  []string{},
	Title:			"Creative Scorer API",
	Description:	  "Scores ad creatives across measured, perceived and reasoned signals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:		"{{",
	RightDelim:	   "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
