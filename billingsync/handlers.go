package billingsync

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meridianmed/clinicops_backend/config"
	"github.com/meridianmed/clinicops_backend/models"
	"github.com/meridianmed/clinicops_backend/utils"
	"gorm.io/gorm"
)

// TriggerSyncHandler runs a reconciliation synchronously and returns the
// counter summary. The caller always gets a summary, never a bare error:
// an orchestration failure shows up as a failed run in the response body.
func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, ok := utils.GetOperatorFromContext(c.Request.Context())
		if !ok || strings.TrimSpace(operator) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, err := RunBillingSync(c.Request.Context(), operator)
		if err != nil {
			if errors.Is(err, ErrSyncAlreadyRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			if result.SyncRunId == 0 {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			// Run opened but failed to orchestrate; the audit row carries
			// the error, the caller still gets the summary.
			c.JSON(http.StatusOK, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		db := config.GetDB().WithContext(c.Request.Context())
		var runs []models.BillingSyncRun
		if err := db.Where("sync_type = ?", models.SyncTypeBillingReconciliation).
			Order("id desc").
			Limit(limit).
			Find(&runs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		var run models.BillingSyncRun
		if err := db.Where("id = ?", id).Take(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var errs []models.BillingSyncError
		if err := db.Where("sync_run_id = ?", run.ID).Order("id desc").Find(&errs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(run),
			Errors:          mapErrors(errs),
		})
	}
}

// IssueListHandler lists payment issues for the review tooling. Open
// issues only by default; pass open=false for full history. Optional
// patient_id filter.
func IssueListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.PaymentIssue{})

		openOnly := true
		if v := strings.TrimSpace(c.Query("open")); v != "" {
			openOnly = !strings.EqualFold(v, "false")
		}
		if openOnly {
			query = query.Where("resolved_at IS NULL")
		}
		if v := strings.TrimSpace(c.Query("patient_id")); v != "" {
			pid, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient_id"})
				return
			}
			query = query.Where("patient_id = ?", pid)
		}

		var issues []models.PaymentIssue
		if err := query.Order("id desc").Limit(200).Find(&issues).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]IssueResponse, 0, len(issues))
		for _, issue := range issues {
			items = append(items, mapIssueToResponse(issue))
		}
		c.JSON(http.StatusOK, IssueListResponse{Items: items})
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run models.BillingSyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:               run.ID,
		SyncType:         run.SyncType,
		Status:           run.Status,
		RecordsProcessed: run.RecordsProcessed,
		RecordsUpdated:   run.RecordsUpdated,
		RecordsFailed:    run.RecordsFailed,
		CreatedBy:        run.CreatedBy,
		StartedAt:        formatTime(run.StartedAt),
		CompletedAt:      formatTime(run.CompletedAt),
		DurationMs:       run.DurationMs,
		ErrorMessage:     run.ErrorMessage,
	}
}

func mapErrors(errorsList []models.BillingSyncError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			EntityType: errItem.EntityType,
			ExternalId: errItem.ExternalId,
			ErrorCode:  errItem.ErrorCode,
			Message:    errItem.Message,
			Retryable:  errItem.Retryable,
		})
	}
	return out
}

func mapIssueToResponse(issue models.PaymentIssue) IssueResponse {
	return IssueResponse{
		ID:                issue.ID,
		PatientId:         issue.PatientId,
		SourceRecordId:    issue.SourceRecordId,
		IssueType:         string(issue.IssueType),
		Severity:          string(issue.Severity),
		AmountOwed:        issue.AmountOwed.String(),
		DaysOverdue:       issue.DaysOverdue,
		PreviousStatusKey: string(issue.PreviousStatusKey),
		AutoUpdated:       issue.AutoUpdated,
		CreatedAt:         issue.CreatedAt.UTC().Format(time.RFC3339),
		ResolvedAt:        formatTime(issue.ResolvedAt),
	}
}
