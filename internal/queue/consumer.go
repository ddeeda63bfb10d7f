package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const bookingLogPath = "logs/booking.log"

// StartBookingConsumer consumes booking.confirmed messages and appends
// one line per settled booking to logs/booking.log, an audit trail that
// survives restarts. It reconnects forever with capped backoff and never
// returns under normal operation; run it in its own goroutine.
func StartBookingConsumer(log *zap.Logger) error {
	backoff := time.Second
	for {
		conn, ch, err := openChannel()
		if err != nil {
			log.Warn("booking consumer cannot reach broker",
				zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ch, log)
		_ = ch.Close()
		_ = conn.Close()
		log.Warn("booking consumer disconnected", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
}

func consume(ch *amqp.Channel, log *zap.Logger) error {
	// Bound in-flight deliveries; audit writes are fast but disk stalls
	// should back up into the broker, not into memory.
	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(bookingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", bookingQueueName, err)
	}

	for d := range deliveries {
		if err := appendAuditLine(d.Body); err != nil {
			log.Error("booking audit write failed", zap.Error(err))
			_ = d.Nack(false, false) // do not requeue a poison message
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("delivery channel closed")
}

func appendAuditLine(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(bookingLogPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(bookingLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s booking=%s user=%s item=%d(%s) %q tickets=%d total=%.2f payment=%s order=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ItemID, ev.ItemKind,
		ev.ItemTitle, ev.TicketCount, ev.TotalPrice, ev.PaymentID, ev.OrderID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	return nil
}
