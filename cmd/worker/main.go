package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"resume-pipeline/internal/bootstrap"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 1200
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibility := time.Duration(envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)) * time.Second
	shutdownTimeout := time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second
	concurrency := max(1, cfg.WorkerConcurrency)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	go app.Sweeper.Run(ctx)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	switch {
	case app.SQS != nil:
		log.Printf("worker started driver=sqs queue=%s concurrency=%d visibility=%s", cfg.SQSQueueURL, concurrency, visibility)
		pollSQS(ctx, app, app.SQS, visibility, sem, &wg)
	case app.RabbitMQ != nil:
		log.Printf("worker started driver=rabbitmq queue=%s concurrency=%d", cfg.RabbitMQQueue, concurrency)
		if err := consumeRabbitMQ(ctx, app, app.RabbitMQ, concurrency, sem, &wg); err != nil {
			log.Fatalf("rabbitmq consume: %v", err)
		}
	default:
		// inline submissions run inside the API process; only the sweep runs here
		log.Printf("worker started driver=%s; sweeping only", cfg.QueueDriver)
		<-ctx.Done()
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight runs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight runs")
	}
}

// sqsQueue is the part of queue.SQSClient the poll loop needs.
type sqsQueue interface {
	Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Delivery, error)
	Delete(ctx context.Context, receiptHandle string) error
}

func pollSQS(ctx context.Context, runner workerproc.Runner, client sqsQueue, visibility time.Duration, sem chan struct{}, wg *sync.WaitGroup) {
	for {
		if ctx.Err() != nil {
			return
		}
		deliveries, err := client.Receive(ctx, queue.ReceiveOptions{
			MaxMessages: 10,
			Wait:        20 * time.Second,
			Visibility:  visibility,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(d queue.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				if workerproc.Process(ctx, runner, d.Body, sqsFields(d)) {
					if err := client.Delete(context.WithoutCancel(ctx), d.ReceiptHandle); err != nil {
						fields := sqsFields(d)
						fields["error"] = err.Error()
						telemetry.Error("worker.submission.delete_failed", fields)
					}
				}
			}(d)
		}
	}
}

func consumeRabbitMQ(ctx context.Context, runner workerproc.Runner, client *queue.RabbitMQClient, prefetch int, sem chan struct{}, wg *sync.WaitGroup) error {
	deliveries, closeCh, err := client.Consume(prefetch)
	if err != nil {
		return err
	}
	defer closeCh()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			select {
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				fields := map[string]any{"amqp_message_id": d.MessageId, "redelivered": d.Redelivered}
				if workerproc.Process(ctx, runner, string(d.Body), fields) {
					_ = d.Ack(false)
					return
				}
				_ = d.Nack(false, !d.Redelivered)
			}(d)
		}
	}
}

func sqsFields(d queue.Delivery) map[string]any {
	count, _ := strconv.Atoi(d.ReceiveCount)
	return map[string]any{
		"sqs_message_id": d.MessageID,
		"receive_count":  count,
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
