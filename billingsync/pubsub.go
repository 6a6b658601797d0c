package billingsync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/meridianmed/clinicops_backend/config"
	"github.com/meridianmed/clinicops_backend/models"
	"github.com/meridianmed/clinicops_backend/utils"
)

// PublishScheduledSync enqueues a system-triggered reconciliation run.
// Cloud Scheduler hits this path; the push endpoint below executes it.
func PublishScheduledSync(ctx context.Context) error {
	topicName := strings.TrimSpace(os.Getenv("BILLING_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "billing-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if utils.EnvBoolDefault("BILLING_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := SyncPubSubPayload{
		TriggeredBy: systemOperator(),
		SyncType:    models.SyncTypeBillingReconciliation,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler executes a queued sync run. It always acks (204):
// a failed run is already audited in billing_sync_runs, and Pub/Sub
// redelivery would only pile up overlapping runs behind the lease.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.EnvBoolDefault("ENABLE_BILLING_SYNC_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}

		triggeredBy := strings.TrimSpace(payload.TriggeredBy)
		if triggeredBy == "" {
			triggeredBy = systemOperator()
		}

		_, _ = RunBillingSync(c.Request.Context(), triggeredBy)
		c.Status(204)
	}
}

// systemOperator is the deployed identity for scheduled runs, resolved
// from configuration once, never from a database lookup.
func systemOperator() string {
	if v := strings.TrimSpace(os.Getenv("SYNC_SYSTEM_OPERATOR")); v != "" {
		return v
	}
	return models.SyncTriggeredSystem
}
