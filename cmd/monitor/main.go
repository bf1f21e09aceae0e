// Command monitor is a lightweight companion client for the scheduler's
// control surface: it connects to /ws/counters and prints each pushed
// counter snapshot.
package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/sprintradio/txsched/internal/control"
)

func main() {
	addr := flag.String("addr", "localhost:8090", "scheduler control-surface address")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/counters"}
	log.Printf("monitor: connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("monitor: dial failed: %v", err)
	}
	defer conn.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg control.CounterMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.Printf("monitor: read failed: %v", err)
				return
			}
			log.Printf("monitor: processed=%d transmitted=%d misses=%d queues=%v",
				msg.Counters.Processed, msg.Counters.Transmitted, msg.Counters.DeadlineMisses, msg.QueueLens)
		}
	}()

	select {
	case <-done:
	case <-sig:
		log.Println("monitor: shutting down")
	}
}
