package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dinh7112004/order-service/internal/aws"
)

// Processor consumes order status-change events and publishes per-status
// counts to CloudWatch, making the API's fire-and-forget side effects
// observable downstream.
type Processor struct {
	cloudwatch aws.CloudWatchAPI
	namespace  string
	nowFunc    func() time.Time
}

// NewProcessor creates a worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, namespace string) *Processor {
	return &Processor{
		cloudwatch: clients.CloudWatch,
		namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg StatusChangeMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		// malformed payloads never become valid; drop instead of retrying into the DLQ
		log.Printf("[worker] dropping malformed message: %v, body: %s", err, rec.Body)
		return nil
	}
	if msg.OrderID == "" || msg.NewStatus == "" {
		log.Printf("[worker] dropping incomplete message, body: %s", rec.Body)
		return nil
	}

	log.Printf("[worker] received order=%s status=%s", msg.OrderID, msg.NewStatus)

	now := p.nowFunc()
	value := 1.0
	datum := cwtypes.MetricDatum{
		MetricName: awsString("OrderStatusChanged"),
		Timestamp:  &now,
		Unit:       cwtypes.StandardUnitCount,
		Value:      &value,
		Dimensions: []cwtypes.Dimension{
			{Name: awsString("Status"), Value: &msg.NewStatus},
		},
	}

	_, err := p.cloudwatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &p.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data for order %s: %w", msg.OrderID, err)
	}
	return nil
}

func awsString(s string) *string { return &s }
