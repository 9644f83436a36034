// Package docs provides OpenAPI documentation for the FraudSight API
//
// This package contains the Swagger documentation served via Swagger UI
// using swaggo/swag.
//
// @title           FraudSight Fraud Scoring API
// @version         1.0.0
// @description     Real-time transaction fraud scoring with drift monitoring
// @description
// @description     The API covers the full scoring pipeline:
// @description     - Single and batch transaction scoring
// @description     - Data and performance drift checks against the training window
// @description     - Alert history produced by the drift monitor
// @description     - Retraining trigger and audit history
// @description     - Model registry inspection
// @description
// @description     ## Rate Limiting
// @description
// @description     All endpoints share a per-client rate limit (default 100 requests/minute).
// @description
// @description     ## Error Handling
// @description
// @description     Errors are returned as JSON objects with a single "error" field.
// @description     Endpoints whose backing service is not configured answer 503.
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @tag.name System
// @tag.description Health, metrics, and sample data
//
// @tag.name Scoring
// @tag.description Transaction fraud scoring
//
// @tag.name Drift
// @tag.description Data and performance drift checks
//
// @tag.name Alerts
// @tag.description Drift alert history
//
// @tag.name Retraining
// @tag.description Retraining trigger and history
//
// @tag.name Model
// @tag.description Model registry
package docs
