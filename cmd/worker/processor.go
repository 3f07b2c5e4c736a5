package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/aws"
	"github.com/imrishuroy/pos-orderflow/internal/events"
)

// maxDatumsPerCall keeps each PutMetricData request well under the API limit.
const maxDatumsPerCall = 20

var metricNames = map[string]string{
	events.TypePendingCreated:    "PendingCreated",
	events.TypeFinalizeAttempted: "FinalizeAttempted",
	events.TypeFinalizeSucceeded: "OrdersSubmitted",
	events.TypeFinalizeFailed:    "FinalizeFailed",
	events.TypeWebhookReceived:   "StatusWebhooks",
}

// Processor turns lifecycle events from SQS into CloudWatch metrics.
type Processor struct {
	cw        aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewProcessor creates a new worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, namespace string) *Processor {
	return &Processor{
		cw:        clients.CloudWatch,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

type pendingDatum struct {
	messageID string
	datum     cwtypes.MetricDatum
}

// Handle receives an SQS batch and reports the messages whose metrics could
// not be written, so only those are redelivered. Malformed bodies and
// unknown event types are dropped.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	var resp lambdaevents.SQSEventResponse
	var batch []pendingDatum

	for _, rec := range ev.Records {
		data, err := p.datums(rec)
		if err != nil {
			log.Printf("[worker] dropping message=%s: %v", rec.MessageId, err)
			continue
		}
		for _, d := range data {
			batch = append(batch, pendingDatum{messageID: rec.MessageId, datum: d})
		}
	}

	failed := map[string]bool{}
	for start := 0; start < len(batch); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(batch))
		chunk := batch[start:end]

		data := make([]cwtypes.MetricDatum, 0, len(chunk))
		for _, pd := range chunk {
			data = append(data, pd.datum)
		}
		_, err := p.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  awsString(p.namespace),
			MetricData: data,
		})
		if err != nil {
			log.Printf("[worker] put metric data: %v", err)
			for _, pd := range chunk {
				failed[pd.messageID] = true
			}
		}
	}

	for _, rec := range ev.Records {
		if failed[rec.MessageId] {
			resp.BatchItemFailures = append(resp.BatchItemFailures, lambdaevents.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
			delete(failed, rec.MessageId)
		}
	}
	log.Printf("[worker] processed %d messages, %d datums, %d failed", len(ev.Records), len(batch), len(resp.BatchItemFailures))
	return resp, nil
}

func (p *Processor) datums(rec lambdaevents.SQSMessage) ([]cwtypes.MetricDatum, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return nil, fmt.Errorf("invalid message body: %w", err)
	}
	name, ok := metricNames[ev.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}

	at := ev.At
	if at.IsZero() {
		at = p.nowFunc()
	}
	var dims []cwtypes.Dimension
	if ev.Source != "" {
		dims = append(dims, cwtypes.Dimension{Name: awsString("Source"), Value: awsString(ev.Source)})
	}

	out := []cwtypes.MetricDatum{{
		MetricName: awsString(name),
		Dimensions: dims,
		Timestamp:  &at,
		Unit:       cwtypes.StandardUnitCount,
		Value:      float64Ptr(1),
	}}

	if ev.Type == events.TypeFinalizeSucceeded && ev.Total != "" {
		total, err := decimal.NewFromString(ev.Total)
		if err != nil {
			log.Printf("[worker] message=%s has bad total %q: %v", rec.MessageId, ev.Total, err)
			return out, nil
		}
		value := total.InexactFloat64()
		out = append(out, cwtypes.MetricDatum{
			MetricName: awsString("OrderValue"),
			Dimensions: dims,
			Timestamp:  &at,
			Unit:       cwtypes.StandardUnitNone,
			Value:      &value,
		})
	}
	return out, nil
}

func awsString(s string) *string { return &s }

func float64Ptr(f float64) *float64 { return &f }
