package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/course-progress/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// EventsOptions — флаги команды events.
type EventsOptions struct {
	*RootOptions
	Queue    string
	Parallel int
}

// NewEventsCommand создаёт команду events: печатает события о завершении
// курсов, пока не получит SIGINT или SIGTERM.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "events",
		Short:        "Print course completion events",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
			if err != nil {
				return err
			}
			defer conn.Close()
			ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQExchange, rabbitmq.ProgressQueues())
			if err != nil {
				return err
			}
			defer ch.Close()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return rabbitmq.ConsumeMessages(ctx, ch, opts.Queue, opts.Parallel, opts.logger(),
				eventPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Format))
		},
	}
	cmd.Flags().StringVar(&opts.Queue, "queue", rabbitmq.ProgressQueues()[0].QueueName, "queue to consume")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "number of concurrent handlers")
	return cmd
}

// eventPrinter возвращает обработчик, печатающий событие о завершении курса.
// Нераспознанное сообщение отмечается в errW и подтверждается, иначе оно
// возвращалось бы в очередь бесконечно.
func eventPrinter(w, errW io.Writer, format string) func([]byte) error {
	var mu sync.Mutex
	return func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		var event models.CourseCompletedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			fmt.Fprintf(errW, "skipping malformed event: %v\n", err)
			return nil
		}
		return printResult(w, format, event, func(w io.Writer) {
			completedAt := time.UnixMilli(event.CompletedAt).UTC().Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s (%s)\tcourse %d\tstage %v\t%s\n",
				completedAt, event.Name, event.Serial, event.CourseID, float64(event.CurrentStage), event.UserID)
		})
	}
}
