// collectord receives telemetry events over gRPC and/or Kafka and appends
// them to event files under a logging directory. Optionally it mirrors
// accepted events back out to a Kafka topic for live consumers.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mimir/api/ingest"
	"mimir/infra/eventfile"
	"mimir/infra/kafka"
	"mimir/infra/outbox"
	"mimir/jobs/broadcaster"
	"mimir/jobs/relay"
)

func main() {
	var (
		logdir        = flag.String("logdir", "./runs", "directory for event files")
		listen        = flag.String("listen", ":50051", "gRPC ingest listen address")
		maxQueue      = flag.Int("max-queue", eventfile.DefaultMaxQueue, "pending events before producers block")
		flushInterval = flag.Duration("flush-interval", eventfile.DefaultFlushInterval, "idle flush interval")
		brokers       = flag.String("brokers", "", "comma-separated Kafka brokers (empty disables Kafka)")
		intakeTopic   = flag.String("intake-topic", "", "Kafka topic to relay into the log")
		mirrorTopic   = flag.String("mirror-topic", "", "Kafka topic to broadcast accepted events to")
		outboxDir     = flag.String("outbox-dir", "./outbox", "pebble directory for the broadcast outbox")
	)
	flag.Parse()

	// ---------------- Writer ----------------

	w, err := eventfile.New(eventfile.Config{
		Dir:           *logdir,
		MaxQueue:      *maxQueue,
		FlushInterval: *flushInterval,
	})
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---------------- Kafka jobs ----------------

	if *brokers != "" {
		brokerList := strings.Split(*brokers, ",")

		if *intakeTopic != "" {
			consumer := kafka.NewConsumer(brokerList, "collectord", *intakeTopic)
			defer consumer.Close()
			go func() {
				if err := relay.New(consumer, w).Run(ctx); err != nil && err != context.Canceled {
					log.Printf("relay exited: %v", err)
				}
			}()
		}

		if *mirrorTopic != "" {
			ob, err := outbox.Open(*outboxDir)
			if err != nil {
				log.Fatalf("outbox init failed: %v", err)
			}
			defer ob.Close()

			bc, err := broadcaster.Connect(ob, brokerList, *mirrorTopic, 2*time.Second)
			if err != nil {
				log.Fatalf("broadcaster init failed: %v", err)
			}
			defer bc.Close()
			go bc.Run(ctx)
		}
	}

	// ---------------- gRPC ingest ----------------

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	srv := ingest.NewServer(w)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[collectord] shutting down")
		cancel()
		srv.Stop()
	}()

	log.Printf("[collectord] writing to %s, ingest on %s", w.Logdir(), *listen)
	if err := srv.Serve(lis); err != nil {
		log.Fatalf("ingest server exited: %v", err)
	}
}
