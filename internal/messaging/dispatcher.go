// internal/messaging/dispatcher.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"chainlend-ledger/internal/service"
	"chainlend-ledger/internal/util"
)

// Outcome tells the transport what to do with a delivered message.
type Outcome int

const (
	// Ack removes the message. Used for success and for failures redelivery cannot fix.
	Ack Outcome = iota
	// Nak asks for redelivery.
	Nak
)

func (o Outcome) String() string {
	if o == Nak {
		return "nak"
	}
	return "ack"
}

// Publisher sends a message to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Dispatcher routes decoded chain events to the reconciliation service.
type Dispatcher struct {
	service      service.ReconciliationService
	publisher    Publisher
	scoreSubject string
	logger       *util.Logger
}

// NewDispatcher creates a Dispatcher. A nil publisher disables score notifications.
func NewDispatcher(svc service.ReconciliationService, publisher Publisher, scoreSubject string, logger *util.Logger) *Dispatcher {
	return &Dispatcher{
		service:      svc,
		publisher:    publisher,
		scoreSubject: scoreSubject,
		logger:       logger.WithComponent("dispatcher"),
	}
}

// Handle processes one raw message and returns how it should be settled.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) Outcome {
	ev, err := DecodeEvent(data)
	if err != nil {
		d.logger.Warn("Dropping undecodable event", zap.Error(err))
		return Ack
	}
	err = d.dispatch(ctx, ev)
	return d.settle(ev, err)
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventFunding:
		res, err := d.service.RecordFunding(ctx, *ev.Funding)
		if err != nil {
			return err
		}
		d.logger.Info("Funding reconciled",
			zap.String("event_id", ev.ID),
			zap.String("funded_loan_id", res.FundedLoanID),
			zap.Bool("already_recorded", res.AlreadyRecorded),
		)
		return nil
	case EventRepayment:
		res, err := d.service.RecordRepayment(ctx, *ev.Repayment)
		if err != nil {
			return err
		}
		d.logger.Info("Repayment reconciled",
			zap.String("event_id", ev.ID),
			zap.String("funded_loan_id", res.FundedLoanID),
			zap.String("category", string(res.PaymentCategory)),
			zap.Int("new_score", res.NewScore),
		)
		d.publishScore(ctx, ev.ID, res)
		return nil
	case EventVerification:
		res, err := d.service.VerifyAgainstChain(ctx, *ev.Verification)
		if err != nil {
			return err
		}
		d.logger.Info("Active set verified",
			zap.String("event_id", ev.ID),
			zap.Int("checked", res.Checked),
			zap.Int64("deactivated", res.Deactivated),
		)
		return nil
	default:
		return util.Invalid("unknown event type %q", ev.Type)
	}
}

func (d *Dispatcher) settle(ev *Event, err error) Outcome {
	if err == nil {
		return Ack
	}
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
		zap.String("kind", util.Kind(err)),
		zap.Error(err),
	}
	if util.Retryable(err) {
		d.logger.Error("Event failed, requesting redelivery", fields...)
		return Nak
	}
	d.logger.Warn("Event rejected", fields...)
	return Ack
}

// publishScore is best effort: the repayment is already committed.
func (d *Dispatcher) publishScore(ctx context.Context, eventID string, res *service.RepaymentResult) {
	if d.publisher == nil || d.scoreSubject == "" {
		return
	}
	data, err := json.Marshal(ScoreUpdate{RepaymentResult: *res, EventID: eventID})
	if err != nil {
		d.logger.Error("Failed to encode score update", zap.Error(err))
		return
	}
	if err := d.publisher.Publish(ctx, d.scoreSubject, data); err != nil {
		d.logger.Warn("Failed to publish score update",
			zap.String("subject", d.scoreSubject),
			zap.String("funded_loan_id", res.FundedLoanID),
			zap.Error(fmt.Errorf("publish: %w", err)),
		)
	}
}
