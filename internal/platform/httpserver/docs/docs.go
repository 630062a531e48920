// Package docs holds the Swagger document served at /swagger/.
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
		"/api/login": {
			"post": {
				"summary": "Log in as a voter",
				"tags": [
					"voting"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.LoginResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Voter id",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.LoginRequest"
						}
					}
				]
			}
		},
		"/api/candidates": {
			"get": {
				"summary": "List candidates in registration order",
				"tags": [
					"voting"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/http.CandidateResponse"
							}
						}
					}
				}
			},
			"post": {
				"summary": "Register a candidate",
				"tags": [
					"admin"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/http.CandidateResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Candidate",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.CreateCandidateRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/candidates/bulk": {
			"post": {
				"summary": "Register a batch of candidates atomically",
				"tags": [
					"admin"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/http.BulkCreateCandidatesResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Candidates",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.BulkCreateCandidatesRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/votes": {
			"post": {
				"summary": "Submit a ballot of exactly three candidates",
				"tags": [
					"voting"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SubmitVotesResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"401": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					},
					"500": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Ballot",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.SubmitVotesRequest"
						}
					}
				]
			}
		},
		"/api/results": {
			"get": {
				"summary": "Leaderboard with vote shares and participation stats",
				"tags": [
					"results"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ResultsResponse"
						}
					}
				}
			}
		},
		"/api/results/export": {
			"get": {
				"summary": "Leaderboard as CSV",
				"tags": [
					"results"
				],
				"produces": [
					"text/csv"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "string"
						}
					}
				}
			}
		},
		"/api/status": {
			"get": {
				"summary": "Who has voted and who is pending",
				"tags": [
					"results"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.StatusResponse"
						}
					}
				}
			}
		},
		"/api/voters/{voter_id}/votes": {
			"get": {
				"summary": "Votes cast by a voter",
				"tags": [
					"voting"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.BallotReceiptResponse"
						}
					},
					"401": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Voter id",
						"name": "voter_id",
						"in": "path",
						"required": true
					}
				]
			}
		}
	},
	"definitions": {
		"ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"LoginRequest": {
			"type": "object",
			"properties": {
				"voter_id": {
					"type": "string"
				}
			}
		},
		"CandidateIdentity": {
			"type": "object",
			"properties": {
				"id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"voter_id": {
					"type": "string"
				},
				"has_voted": {
					"type": "boolean"
				}
			}
		},
		"LoginResponse": {
			"type": "object",
			"properties": {
				"candidate": {
					"$ref": "#/definitions/http.CandidateIdentity"
				}
			}
		},
		"CandidateResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"voter_id": {
					"type": "string"
				},
				"has_voted": {
					"type": "boolean"
				},
				"votes_received": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				}
			}
		},
		"CreateCandidateRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"voter_id": {
					"type": "string"
				}
			}
		},
		"BulkCreateCandidatesRequest": {
			"type": "object",
			"properties": {
				"candidates": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.CreateCandidateRequest"
					}
				}
			}
		},
		"BulkCreateCandidatesResponse": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.CandidateResponse"
					}
				}
			}
		},
		"SubmitVotesRequest": {
			"type": "object",
			"properties": {
				"voter_id": {
					"type": "string"
				},
				"selected_candidates": {
					"type": "array",
					"items": {
						"type": "integer"
					}
				}
			}
		},
		"VoteResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "integer"
				},
				"voter_id": {
					"type": "integer"
				},
				"voted_for_id": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				}
			}
		},
		"SubmitVotesResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				},
				"votes": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.VoteResponse"
					}
				}
			}
		},
		"ResultItem": {
			"type": "object",
			"properties": {
				"percentage": {
					"type": "number"
				},
				"id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"voter_id": {
					"type": "string"
				},
				"has_voted": {
					"type": "boolean"
				},
				"votes_received": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				}
			}
		},
		"VotingStatsResponse": {
			"type": "object",
			"properties": {
				"total_votes": {
					"type": "integer"
				},
				"voters_participated": {
					"type": "integer"
				},
				"remaining_voters": {
					"type": "integer"
				},
				"participation_rate": {
					"type": "integer"
				}
			}
		},
		"ResultsResponse": {
			"type": "object",
			"properties": {
				"candidates": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.ResultItem"
					}
				},
				"stats": {
					"$ref": "#/definitions/http.VotingStatsResponse"
				}
			}
		},
		"StatusResponse": {
			"type": "object",
			"properties": {
				"voted": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.CandidateResponse"
					}
				},
				"pending": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.CandidateResponse"
					}
				}
			}
		},
		"BallotReceiptResponse": {
			"type": "object",
			"properties": {
				"voter_id": {
					"type": "string"
				},
				"has_voted": {
					"type": "boolean"
				},
				"votes": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.VoteResponse"
					}
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "voteboard API",
	Description:      "Candidate ballots, live results and participation status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
