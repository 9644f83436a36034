package docs

import (
	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Service health and model status",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Status, loaded model version, and monitor state"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Metrics in Prometheus exposition format"}
                }
            }
        },
        "/sample": {
            "get": {
                "tags": ["System"],
                "summary": "Generate a synthetic sample transaction",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "A labeled synthetic transaction"},
                    "503": {"description": "Sample generator not configured"}
                }
            }
        },
        "/predict": {
            "post": {
                "tags": ["Scoring"],
                "summary": "Score a single transaction",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Fraud probability, risk level, and flag"},
                    "400": {"description": "Malformed or invalid transaction"},
                    "503": {"description": "No model loaded"}
                }
            }
        },
        "/predict/batch": {
            "post": {
                "tags": ["Scoring"],
                "summary": "Score up to 1000 transactions in one call",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Scores in request order"},
                    "400": {"description": "Malformed or invalid batch"},
                    "503": {"description": "No model loaded"}
                }
            }
        },
        "/predictions": {
            "get": {
                "tags": ["Scoring"],
                "summary": "Recently logged scoring decisions",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Prediction records, newest first"},
                    "503": {"description": "Scorer not configured"}
                }
            }
        },
        "/drift/check": {
            "post": {
                "tags": ["Drift"],
                "summary": "Run a drift check",
                "description": "With a transactions payload, compares the posted window against the reference and returns a drift summary. With an empty body, runs a full monitor cycle and returns the alert report.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Drift summary or alert report"},
                    "400": {"description": "Window below the minimum sample count"},
                    "503": {"description": "Drift monitor not configured"}
                }
            }
        },
        "/drift/summary": {
            "get": {
                "tags": ["Drift"],
                "summary": "Drift monitor status",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Loop state, last check outcome, and reference window size"},
                    "503": {"description": "Drift monitor not configured"}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Recent drift evaluation reports",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Reports, newest first"},
                    "503": {"description": "Alert manager not configured"}
                }
            }
        },
        "/retraining/history": {
            "get": {
                "tags": ["Retraining"],
                "summary": "Retraining audit history",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Retraining records, newest first"},
                    "503": {"description": "Retraining gate not configured"}
                }
            }
        },
        "/retraining/trigger": {
            "post": {
                "tags": ["Retraining"],
                "summary": "Trigger a retraining run",
                "description": "Bypasses the drift conditions but respects the 24-hour cooldown.",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Run executed; decision includes the audit record"},
                    "409": {"description": "Refused, cooldown active"},
                    "503": {"description": "Retraining not configured"}
                }
            }
        },
        "/model": {
            "get": {
                "tags": ["Model"],
                "summary": "Active model and registry history",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Version, family, training metrics, and recent versions"},
                    "503": {"description": "No model loaded"}
                }
            }
        }
    },
    "definitions": {}
}`

func init() {
	swag.Register("swagger", &swag.Spec{
		Version:          "1.0.0",
		Host:             "localhost:8080",
		BasePath:         "/api/v1",
		Schemes:          []string{"http", "https"},
		Title:            "FraudSight Fraud Scoring API",
		Description:      "Real-time transaction fraud scoring with drift monitoring",
		InfoInstanceName: "swagger",
		SwaggerTemplate:  docTemplate,
	})
}
