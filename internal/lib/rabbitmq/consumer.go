package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
)

// ConsumeMessages читает очередь queueName и вызывает handler для каждого сообщения,
// не более parallel обработчиков одновременно. Успешно обработанные сообщения
// подтверждаются, при ошибке сообщение возвращается в очередь.
// Возвращается после ctx.Done() или закрытия канала.
func ConsumeMessages(ctx context.Context, ch *amqp.Channel, queueName string, parallel int, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumeMessages"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, max(parallel, 1))
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				if err := handler(d.Body); err != nil {
					log.Warn("message handling failed, requeue", slog.String("queue", queueName), sl.Err(err))
					if nackErr := d.Nack(false, true); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := d.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		case <-ctx.Done():
			// Ждём завершения начатых обработчиков
			for range cap(sem) {
				sem <- struct{}{}
			}
			return nil
		}
	}
}
