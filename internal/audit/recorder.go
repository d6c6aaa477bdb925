package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assistente-api/internal/bucketing"
	"assistente-api/internal/client"
	"assistente-api/internal/clock"
	"assistente-api/internal/models"
	"assistente-api/internal/util"
)

const securityIndexPrefix = "security-events"

// Recorder writes security events to Elasticsearch for investigation and
// fans the same payload out to Kafka for downstream consumers. Recording is
// best effort: a sink failure is logged, never propagated, so the audit
// trail cannot fail an authentication request.
type Recorder struct {
	es        *client.ESClient
	producer  *client.KafkaProducer
	bucketing *bucketing.BucketingManager
	clock     clock.Clocker
}

func NewRecorder(es *client.ESClient, producer *client.KafkaProducer, bucketingMgr *bucketing.BucketingManager, clk clock.Clocker) *Recorder {
	return &Recorder{
		es:        es,
		producer:  producer,
		bucketing: bucketingMgr,
		clock:     clk,
	}
}

// Record indexes and publishes one security event. Either sink may be nil
// when the backing service is not configured.
func (r *Recorder) Record(ctx context.Context, eventType string, userBucket int, reason string) {
	event := models.SecurityEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		UserBucket: userBucket,
		Reason:     reason,
		CreatedAt:  r.clock.Now().UTC(),
	}

	if r.es != nil {
		// One index per day keeps retention a matter of dropping old indices.
		index := securityIndexPrefix + "-" + r.bucketing.GetDateBucket(event.CreatedAt)
		res, err := r.es.IndexDocument(index, event.EventID, event)
		if err != nil {
			util.Error("Failed to index security event",
				zap.String("event_type", eventType),
				zap.Error(err))
		} else {
			res.Body.Close()
		}
	}

	if r.producer != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			util.Error("Failed to marshal security event", zap.Error(err))
			return
		}
		if err := r.producer.Publish(ctx, strconv.Itoa(userBucket), payload); err != nil {
			util.Error("Failed to publish security event",
				zap.String("event_type", eventType),
				zap.Error(err))
		}
	}
}
