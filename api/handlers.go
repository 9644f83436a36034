package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

type batchScoreRequest struct {
	Transactions []models.ScoreRequest `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

type driftCheckRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

// health reports service liveness plus the state of the model and monitor.
// The endpoint always answers 200; the status field carries the verdict.
func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}
	modelLoaded := false
	if s.deps.Scorer != nil {
		m, version := s.deps.Scorer.Model()
		modelLoaded = m != nil
		resp["model_version"] = version
	}
	resp["model_loaded"] = modelLoaded
	if !modelLoaded {
		resp["status"] = "degraded"
	}
	if s.deps.Monitor != nil {
		resp["monitor"] = s.deps.Monitor.Status()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) sampleTransaction(c *gin.Context) {
	if s.deps.Generator == nil {
		s.unavailable(c, "sample generator")
		return
	}
	c.JSON(http.StatusOK, s.deps.Generator.Sample())
}

func (s *Server) predict(c *gin.Context) {
	if s.deps.Scorer == nil {
		s.unavailable(c, "scorer")
		return
	}
	var req models.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txn := req.ToTransaction()
	resp, err := s.deps.Scorer.ScoreTransaction(c.Request.Context(), &txn)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) predictBatch(c *gin.Context) {
	if s.deps.Scorer == nil {
		s.unavailable(c, "scorer")
		return
	}
	var req batchScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txns := make([]models.Transaction, len(req.Transactions))
	for i := range req.Transactions {
		txns[i] = req.Transactions[i].ToTransaction()
	}
	responses, err := s.deps.Scorer.ScoreBatch(c.Request.Context(), txns)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(responses), "results": responses})
}

// driftCheck runs drift detection on demand. With a transaction payload the
// posted records are evaluated ad hoc; with an empty body the full monitoring
// cycle runs, alerts included.
func (s *Server) driftCheck(c *gin.Context) {
	if s.deps.Monitor == nil {
		s.unavailable(c, "drift monitor")
		return
	}
	var req driftCheckRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if len(req.Transactions) > 0 {
		summary, err := s.deps.Monitor.CheckRecords(req.Transactions)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
		return
	}
	report, err := s.deps.Monitor.RunCheck(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) driftSummary(c *gin.Context) {
	if s.deps.Monitor == nil {
		s.unavailable(c, "drift monitor")
		return
	}
	c.JSON(http.StatusOK, s.deps.Monitor.Status())
}

func (s *Server) listAlerts(c *gin.Context) {
	if s.deps.Alerts == nil {
		s.unavailable(c, "alert manager")
		return
	}
	limit := queryInt(c, "limit", 20)
	reports := s.deps.Alerts.Recent(limit)
	c.JSON(http.StatusOK, gin.H{"count": len(reports), "alerts": reports})
}

// retrainingHistory returns gate records newest first.
func (s *Server) retrainingHistory(c *gin.Context) {
	if s.deps.Gate == nil {
		s.unavailable(c, "retraining gate")
		return
	}
	records, err := s.deps.Gate.History().All()
	if err != nil {
		s.writeError(c, err)
		return
	}
	limit := queryInt(c, "limit", 20)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if len(records) > limit {
		records = records[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

// triggerRetraining is the operator override. A trigger refused by the
// cooldown answers 409 with the gate's decision.
func (s *Server) triggerRetraining(c *gin.Context) {
	if s.deps.Monitor == nil {
		s.unavailable(c, "drift monitor")
		return
	}
	decision, err := s.deps.Monitor.TriggerRetraining(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if !decision.Triggered {
		status = http.StatusConflict
	}
	c.JSON(status, decision)
}

func (s *Server) modelInfo(c *gin.Context) {
	if s.deps.Scorer == nil {
		s.unavailable(c, "scorer")
		return
	}
	m, version := s.deps.Scorer.Model()
	if m == nil {
		s.writeError(c, errors.ErrModelUnavailable)
		return
	}
	resp := gin.H{"version": version, "family": m.Family()}
	if s.deps.Registry != nil {
		if versions, err := s.deps.Registry.List(5); err == nil {
			resp["versions"] = versions
			for _, v := range versions {
				if v.Version != version {
					continue
				}
				var parsed map[string]float64
				if json.Unmarshal([]byte(v.Metrics), &parsed) == nil {
					resp["metrics"] = parsed
				}
				resp["trained_at"] = v.TrainedAt
				resp["training_samples"] = v.TrainingSamples
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recentPredictions(c *gin.Context) {
	if s.deps.Scorer == nil {
		s.unavailable(c, "scorer")
		return
	}
	limit := queryInt(c, "limit", 50)
	records, err := s.deps.Scorer.RecentPredictions(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "predictions": records})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
