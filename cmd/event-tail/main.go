package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

type AnyEvent map[string]any

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP progress feed address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	for {
		if err := run(*addr, *pretty); err != nil {
			log.Printf("[event-tail] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[event-tail] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()

		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj AnyEvent
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		fmt.Println(summarize(obj))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

// summarize renders import snapshots on one line and everything else as
// indented JSON.
func summarize(ev AnyEvent) string {
	if p, ok := ev["progress"].(map[string]any); ok {
		return fmt.Sprintf("%v %v %v year=%v %v/%v added=%v updated=%v unavailable=%v failed_years=%v",
			ev["type"], p["run_id"], p["kind"], p["current_year"], p["years_done"], p["total_years"],
			p["processed_count"], p["updated_count"], p["unavailable_count"], p["error_count"])
	}
	b, _ := json.MarshalIndent(ev, "", "  ")
	return string(b)
}
