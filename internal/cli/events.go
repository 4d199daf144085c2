package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/mq"
)

// NewEventsCmd создаёт группу команд чтения событий вызовов.
func NewEventsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow completed-invocation events",
	}

	cmd.AddCommand(newEventsTailCmd(env))

	return cmd
}

func newEventsTailCmd(env *Env) *cobra.Command {
	var amqpURL string
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print invocation events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			if amqpURL == "" {
				amqpURL = os.Getenv("RABBITMQ_URL")
			}
			if amqpURL == "" {
				return fmt.Errorf("RabbitMQ url required (--amqp-url or RABBITMQ_URL)")
			}
			out := env.Output()

			conn, err := mq.NewConnection(amqpURL, env.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(conn); err != nil {
				return err
			}

			key := mq.RoutingKeyAll
			if failedOnly {
				key = mq.RoutingKeyFailed
			}
			queue, err := mq.DeclareTailQueue(conn, key)
			if err != nil {
				return err
			}

			consumer := mq.NewConsumer(conn, queue, func(_ context.Context, rec *domain.InvocationRecord) error {
				printEvent(out, rec)
				return nil
			}, env.Logger)

			out.Success(fmt.Sprintf("Listening for %s events (Ctrl+C to stop)", key))
			if err := consumer.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ url (default: $RABBITMQ_URL)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only failed invocations")

	return cmd
}

// printEvent выводит событие одной строкой (или JSON-объектом с --json).
func printEvent(out *Output, rec *domain.InvocationRecord) {
	if out.jsonMode {
		out.JSON(rec)
		return
	}
	row := recordRow(*rec)
	out.Line("%s %s %s task=%s status=%s success=%s files=%s callback=%s %s",
		row[8], row[1], row[2], dash(row[3]), row[4], row[5], dash(row[6]), dash(row[7]), row[9])
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
